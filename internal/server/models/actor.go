package models

// ActorContext identifies the authenticated caller of a lifecycle operation.
// It is produced by the session authenticator and passed explicitly into
// every service call.
type ActorContext struct {
	AccountID int64
	Role      Role
}
