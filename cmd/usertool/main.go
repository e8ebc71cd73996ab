// Command usertool заводит пользователей, выдаёт им группы и подписывает JWT для локальной работы с API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
	"github.com/vladislavdragonenkov/littlelemon/internal/identity"
	"github.com/vladislavdragonenkov/littlelemon/internal/storage/memory"
	"github.com/vladislavdragonenkov/littlelemon/internal/storage/postgres"
)

const defaultTimeout = 30 * time.Second

const (
	actionCreateUser = "create-user"
	actionGrant      = "grant"
	actionToken      = "token"
)

type options struct {
	action string
	name   string
	email  string
	userID int64
	group  domain.Group
	dsn    string
	secret string
	ttl    time.Duration
}

func parseOptions(args []string, getenv func(string) string) (options, error) {
	var (
		opts  options
		group string
	)
	fs := flag.NewFlagSet("usertool", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.action, "action", "", "create-user|grant|token")
	fs.StringVar(&opts.name, "name", "", "user name (create-user)")
	fs.StringVar(&opts.email, "email", "", "user email (create-user)")
	fs.Int64Var(&opts.userID, "user-id", 0, "user id (grant, token)")
	fs.StringVar(&group, "group", "", "group slug: manager|delivery-crew (grant, optional for create-user)")
	fs.StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN (fallback: LL_POSTGRES_DSN, empty means in-memory)")
	fs.StringVar(&opts.secret, "secret", "", "JWT secret (fallback: LL_JWT_SECRET)")
	fs.DurationVar(&opts.ttl, "ttl", identity.DefaultTokenTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.dsn == "" {
		opts.dsn = strings.TrimSpace(getenv("LL_POSTGRES_DSN"))
	}
	if opts.secret == "" {
		opts.secret = getenv("LL_JWT_SECRET")
	}
	if group != "" {
		parsed, ok := domain.ParseGroupSlug(group)
		if !ok {
			return options{}, fmt.Errorf("unknown group %q (use manager|delivery-crew)", group)
		}
		opts.group = parsed
	}

	switch opts.action {
	case actionCreateUser:
		if strings.TrimSpace(opts.name) == "" || strings.TrimSpace(opts.email) == "" {
			return options{}, errors.New("create-user requires -name and -email")
		}
	case actionGrant:
		if opts.userID <= 0 || opts.group == "" {
			return options{}, errors.New("grant requires -user-id and -group")
		}
	case actionToken:
		if opts.userID <= 0 {
			return options{}, errors.New("token requires -user-id")
		}
	default:
		return options{}, fmt.Errorf("unsupported action %q (use create-user|grant|token)", opts.action)
	}
	if opts.action != actionGrant && opts.secret == "" {
		return options{}, errors.New("LL_JWT_SECRET (or -secret) is required to issue tokens")
	}
	return opts, nil
}

// run выполняет действие напрямую через репозиторий, минуя проверку ролей API:
// так заводится первый менеджер.
func run(ctx context.Context, opts options, members domain.MembershipRepository, out io.Writer) error {
	userID := opts.userID

	switch opts.action {
	case actionCreateUser:
		user, err := members.CreateUser(ctx, domain.User{Name: strings.TrimSpace(opts.name), Email: strings.TrimSpace(opts.email)})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		userID = user.ID
		_, _ = fmt.Fprintf(out, "user created: id=%d email=%s\n", user.ID, user.Email)
		if opts.group != "" {
			if err := members.AddMember(ctx, opts.group, user.ID); err != nil {
				return fmt.Errorf("add to group: %w", err)
			}
			_, _ = fmt.Fprintf(out, "user %d added to %s group\n", user.ID, opts.group)
		}
	case actionGrant:
		if err := members.AddMember(ctx, opts.group, userID); err != nil {
			return fmt.Errorf("add to group: %w", err)
		}
		_, _ = fmt.Fprintf(out, "user %d added to %s group\n", userID, opts.group)
		return nil
	case actionToken:
		if _, err := members.GetUser(ctx, userID); err != nil {
			return fmt.Errorf("lookup user: %w", err)
		}
	}

	issuer, err := identity.NewIssuer(opts.secret, opts.ttl)
	if err != nil {
		return err
	}
	token, err := issuer.Issue(userID)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	_, _ = fmt.Fprintf(out, "token: %s\n", token)
	return nil
}

func openMembers(ctx context.Context, dsn string) (domain.MembershipRepository, func(), error) {
	if dsn == "" {
		log.Warn("LL_POSTGRES_DSN is not set; using in-memory storage, changes are not persisted")
		return memory.NewMembershipRepository(memory.NewStore()), func() {}, nil
	}
	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}
	return postgres.NewMembershipRepository(store), func() { _ = store.Close() }, nil
}

func main() {
	_ = godotenv.Load()
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	opts, err := parseOptions(os.Args[1:], os.Getenv)
	if err != nil {
		log.WithError(err).Fatal("invalid arguments")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	members, closeStore, err := openMembers(ctx, opts.dsn)
	if err != nil {
		log.WithError(err).Fatal("storage is unavailable")
	}
	defer closeStore()

	if err := run(ctx, opts, members, os.Stdout); err != nil {
		log.WithError(err).Fatal("usertool failed")
	}
}
