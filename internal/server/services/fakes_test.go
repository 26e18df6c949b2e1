package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/shipledger/internal/common"
	"github.com/dmitrijs2005/shipledger/internal/dbx"
	"github.com/dmitrijs2005/shipledger/internal/logging"
	"github.com/dmitrijs2005/shipledger/internal/server/models"
	"github.com/dmitrijs2005/shipledger/internal/server/policy"
	"github.com/dmitrijs2005/shipledger/internal/server/repositories/auditlogs"
	"github.com/dmitrijs2005/shipledger/internal/server/repositories/entries"
	"github.com/dmitrijs2005/shipledger/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var (
	superAdmin = models.ActorContext{AccountID: 1, Role: models.RoleSuperAdmin}
	devAdmin   = models.ActorContext{AccountID: 2, Role: models.RoleDevAdmin}
	staff      = models.ActorContext{AccountID: 3, Role: models.RoleUser}
)

// --- dispatcher ---

// syncDispatcher runs tasks inline and remembers their names and errors.
type syncDispatcher struct {
	mu    sync.Mutex
	names []string
	errs  []error
}

func (d *syncDispatcher) Dispatch(name string, fn func(context.Context) error) bool {
	err := fn(context.Background())
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names = append(d.names, name)
	d.errs = append(d.errs, err)
	return true
}

func (d *syncDispatcher) count(name string) int {
	n := 0
	for _, x := range d.names {
		if x == name {
			n++
		}
	}
	return n
}

// --- attachment store ---

type fakeStore struct {
	stored   []*models.Attachment
	deleted  []string
	storeErr error
	delErr   error
}

func (f *fakeStore) Store(ctx context.Context, data []byte) (*models.Attachment, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	h := "entries/new-" + string(data)
	a := &models.Attachment{URL: "http://cdn/" + h, Handle: h}
	f.stored = append(f.stored, a)
	return a, nil
}

func (f *fakeStore) Delete(ctx context.Context, handle string) error {
	f.deleted = append(f.deleted, handle)
	return f.delErr
}

// --- hasher ---

type fakeHasher struct {
	dummyCalls int
	hashErr    error
}

func (h *fakeHasher) Hash(secret string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hash:" + secret, nil
}

func (h *fakeHasher) Verify(secret, hash string) bool {
	return hash == "hash:"+secret
}

func (h *fakeHasher) VerifyDummy(string) { h.dummyCalls++ }

// --- repositories ---

type fakeUsersRepo struct {
	users.Repository

	byEmail   map[string]*models.Account
	getErr    error
	created   []*models.Account
	createErr error
	toggled   map[int64]bool
	toggleErr error
	superN    int64
}

func (f *fakeUsersRepo) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	a.ID = int64(100 + len(f.created))
	f.created = append(f.created, a)
	return a, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

func (f *fakeUsersRepo) ToggleActive(ctx context.Context, id int64) (bool, error) {
	if f.toggleErr != nil {
		return false, f.toggleErr
	}
	cur, ok := f.toggled[id]
	if !ok {
		return false, common.ErrorNotFound
	}
	f.toggled[id] = !cur
	return !cur, nil
}

func (f *fakeUsersRepo) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	return f.superN, nil
}

type fakeEntriesRepo struct {
	entries.Repository

	rows      map[int64]*models.Entry
	nextID    int64
	createErr error
	listErr   error
	updateErr error

	lastProjection policy.Projection
	updates        []models.FieldSet
}

func newFakeEntriesRepo() *fakeEntriesRepo {
	return &fakeEntriesRepo{rows: map[int64]*models.Entry{}, nextID: 1}
}

func (f *fakeEntriesRepo) Create(ctx context.Context, e *models.Entry) (*models.Entry, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	e.ID = f.nextID
	f.nextID++
	f.rows[e.ID] = e
	return e, nil
}

func (f *fakeEntriesRepo) List(ctx context.Context, p policy.Projection) ([]*models.Entry, error) {
	f.lastProjection = p
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Entry
	for _, e := range f.rows {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEntriesRepo) GetByID(ctx context.Context, id int64, p policy.Projection) (*models.Entry, error) {
	f.lastProjection = p
	e, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return e, nil
}

func (f *fakeEntriesRepo) LockForUpdate(ctx context.Context, id int64) (*models.Entry, error) {
	e, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.Entry{ID: e.ID, UserID: e.UserID, Attachment: e.Attachment}, nil
}

func (f *fakeEntriesRepo) Update(ctx context.Context, id int64, fields models.FieldSet, a *models.Attachment) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	e, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	for k, v := range fields {
		e.Fields[k] = v
	}
	if a != nil {
		e.Attachment = a
	}
	f.updates = append(f.updates, fields)
	return nil
}

func (f *fakeEntriesRepo) Delete(ctx context.Context, id int64) (*models.Attachment, error) {
	e, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.rows, id)
	return e.Attachment, nil
}

type fakeAuditRepo struct {
	auditlogs.Repository

	created   []*models.AuditLogEntry
	createErr error
	list      []*models.AuditLogEntry
	listErr   error
}

func (f *fakeAuditRepo) Create(ctx context.Context, e *models.AuditLogEntry) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.created = append(f.created, e)
	return int64(len(f.created)), nil
}

func (f *fakeAuditRepo) List(ctx context.Context) ([]*models.AuditLogEntry, error) {
	return f.list, f.listErr
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	e *fakeEntriesRepo
	a *fakeAuditRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: &fakeUsersRepo{byEmail: map[string]*models.Account{}, toggled: map[int64]bool{}},
		e: newFakeEntriesRepo(),
		a: &fakeAuditRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository          { return m.u }
func (m *fakeRepoManager) Entries(db dbx.DBTX) entries.Repository      { return m.e }
func (m *fakeRepoManager) AuditLogs(db dbx.DBTX) auditlogs.Repository  { return m.a }

// --- fixture ---

type fixture struct {
	db      *sql.DB
	mock    sqlmock.Sqlmock
	rm      *fakeRepoManager
	tasks   *syncDispatcher
	store   *fakeStore
	hasher  *fakeHasher
	audit   *AuditService
	entries *EntryService
	users   *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock := newSQLMockDB(t)
	f := &fixture{
		db:     db,
		mock:   mock,
		rm:     newFakeRepoManager(),
		tasks:  &syncDispatcher{},
		store:  &fakeStore{},
		hasher: &fakeHasher{},
	}
	f.audit = NewAuditService(db, f.rm, f.tasks, logging.Nop())
	f.entries = NewEntryService(db, f.rm, f.store, f.tasks, f.audit, logging.Nop())
	f.users = NewUserService(db, f.rm, f.hasher, f.audit, logging.Nop())
	return f
}

func (f *fixture) seedEntry(owner int64, att *models.Attachment) int64 {
	e := &models.Entry{
		UserID: owner,
		Fields: models.FieldSet{
			"exporter_name": "Acme",
			"invoice_no":    "INV-1",
			"container_no":  "MSCU1",
			"transporter":   "TR",
			"remarks":       "old",
		}.WithCreateDefaults(),
		Attachment: att,
	}
	_, _ = f.rm.e.Create(context.Background(), e)
	return e.ID
}

func requiredFields() map[string]any {
	return map[string]any{
		"exporter_name": "Acme",
		"invoice_no":    "INV-9",
		"container_no":  "MSCU9",
		"transporter":   "Road Co",
	}
}

var errDB = errors.New("connection reset")

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
