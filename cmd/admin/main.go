// Command admin creates an administrator account, or promotes and
// reactivates an existing one.
//
//	admin -email ada@example.com -name Ada
//
// The password is prompted for when -password is omitted.
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
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/iliyamo/finance-tracker/internal/config"
	"github.com/iliyamo/finance-tracker/internal/database"
	"github.com/iliyamo/finance-tracker/internal/dto"
	"github.com/iliyamo/finance-tracker/internal/logging"
	"github.com/iliyamo/finance-tracker/internal/model"
	"github.com/iliyamo/finance-tracker/internal/repository"
	"github.com/iliyamo/finance-tracker/internal/request"
	"github.com/iliyamo/finance-tracker/internal/utils"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.New(cfg.Env, cfg.LogLevel, os.Stderr)

	db, err := database.Open(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("migrate")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := run(ctx, repository.NewUserRepo(db), cfg.BcryptCost, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "admin:", err)
		os.Exit(1)
	}
}

// run parses args and creates or promotes the administrator. stdin is
// only read when the password is needed and was not passed as a flag.
func run(ctx context.Context, users *repository.UserRepo, cost int, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	fs.SetOutput(stdout)
	email := fs.String("email", "", "administrator email (required)")
	name := fs.String("name", "", "display name for a new account")
	password := fs.String("password", "", "password; prompted for when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return errors.New("-email is required")
	}

	u, err := users.FindByEmail(ctx, *email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return create(ctx, users, cost, *email, *name, *password, stdin, stdout)
	case err != nil:
		return err
	}

	d := dto.User{Role: ptr(model.RoleAdmin), IsActive: ptr(true)}
	if *password != "" {
		hash, err := utils.HashPassword(*password, cost)
		if err != nil {
			return err
		}
		d.Password = &hash
	}
	if err := users.Update(ctx, u, d.ToAttributes()); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "promoted %s (id %d) to admin\n", u.Email, u.ID)
	return nil
}

func create(ctx context.Context, users *repository.UserRepo, cost int, email, name, password string, stdin io.Reader, stdout io.Writer) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("-name is required for a new account")
	}
	if password == "" {
		p, err := readPassword(stdin, stdout)
		if err != nil {
			return err
		}
		password = p
	}

	in := request.StoreUser{
		Name:                 request.Field(name),
		Email:                request.Field(email),
		Password:             request.Field(password),
		PasswordConfirmation: request.Field(password),
		Role:                 request.Field(model.RoleAdmin),
	}
	if err := request.NewValidator().Validate(in); err != nil {
		return err
	}
	d, err := dto.UserFromStore(in, cost)
	if err != nil {
		return err
	}
	u, err := users.Create(ctx, d.ToAttributes())
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "created admin %s (id %d)\n", u.Email, u.ID)
	return nil
}

// readPassword prompts without echo on a terminal and reads one line
// otherwise, so the command can be scripted.
func readPassword(stdin io.Reader, stdout io.Writer) (string, error) {
	fmt.Fprint(stdout, "Password: ")
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(stdout)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func ptr[T any](v T) *T { return &v }
