package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/agricompass/internal/config"
	"github.com/sudo-init-do/agricompass/internal/db"
	"github.com/sudo-init-do/agricompass/internal/store"
)

func main() {
	email := flag.String("email", "", "Email of the user to promote to admin")
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if *email == "" {
		logrus.Fatal("usage: go run ./cmd/adminutil/promote_admin -email user@example.com")
	}

	cfg, _, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	if cfg.Store.Driver != config.DriverPostgres {
		logrus.Fatalf("promote_admin needs the postgres store, got %q", cfg.Store.Driver)
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg.Store.DSN())
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect")
	}
	defer pool.Close()

	// Promote the user to admin. The token is cleared so the next login
	// issues one carrying the new role.
	ok, err := store.NewPostgres(pool).UpdateOne(ctx, store.Users,
		store.Where(store.Eq("email", strings.ToLower(strings.TrimSpace(*email)))),
		map[string]any{"role": "admin", "token": ""},
	)
	if err != nil {
		logrus.WithError(err).Fatal("failed to promote user to admin")
	}
	if !ok {
		logrus.Fatalf("no user found with email: %s", *email)
	}

	fmt.Printf("User %s promoted to admin.\n", *email)
}
