// Command bootstrap-admin creates the first SUPER_ADMIN account. The password
// is read from the terminal without echo, or as one line from stdin when
// stdin is not a terminal.
//
//	bootstrap-admin -name "Ops" -email ops@example.com [-d DSN] [-c config.json]
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/shipledger/internal/common"
	"github.com/dmitrijs2005/shipledger/internal/flagx"
	"github.com/dmitrijs2005/shipledger/internal/server"
	"github.com/dmitrijs2005/shipledger/internal/server/config"
	"github.com/dmitrijs2005/shipledger/internal/server/models"
	"golang.org/x/term"
)

type bootstrapFunc func(ctx context.Context, c *config.Config, name, email, password string) (*models.Account, error)

// readPassword is a seam for tests.
var readPassword = func(in *os.File, out io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(out, "Password: ")
	b, err := term.ReadPassword(fd)
	defer common.WipeByteArray(b)
	fmt.Fprintln(out)
	return string(b), err
}

func run(ctx context.Context, args []string, stdin *os.File, stdout io.Writer, bootstrap bootstrapFunc) error {
	var name, email string

	fs := flag.NewFlagSet("bootstrap-admin", flag.ContinueOnError)
	fs.StringVar(&name, "name", "", "display name of the account")
	fs.StringVar(&email, "email", "", "login email of the account")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-name", "-email"})); err != nil {
		return err
	}
	if name == "" || email == "" {
		return errors.New("both -name and -email are required")
	}

	password, err := readPassword(stdin, stdout)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if password == "" {
		return errors.New("empty password")
	}

	account, err := bootstrap(ctx, config.LoadConfig(), name, email, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "created %s account %d for %s\n", account.Role, account.ID, account.Email)
	return nil
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, server.BootstrapSuperAdmin); err != nil {
		fmt.Fprintln(os.Stderr, "bootstrap-admin:", err)
		os.Exit(1)
	}
}
