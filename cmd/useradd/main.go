// Command useradd provisions a VENDOR or ADMIN account. Vendor ids are
// the user ids this prints. With -disable it blocks sign-in for an
// existing account instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/iliyamo/marketplace-availability/internal/config"
	"github.com/iliyamo/marketplace-availability/internal/database"
	"github.com/iliyamo/marketplace-availability/internal/model"
	"github.com/iliyamo/marketplace-availability/internal/repository"
)

func main() {
	email := flag.String("email", "", "account email")
	role := flag.String("role", model.RoleVendor, "VENDOR or ADMIN")
	disable := flag.Bool("disable", false, "deactivate the account instead of creating it")
	flag.Parse()

	if *disable {
		if *email == "" {
			fmt.Fprintln(os.Stderr, "usage: useradd -disable -email a@b.c")
			os.Exit(2)
		}
		withRepo(func(ctx context.Context, users *repository.UserRepo, _ config.Config) {
			if err := users.SetActive(ctx, *email, false); err != nil {
				log.Fatalf("disable user: %v", err)
			}
			fmt.Printf("disabled %s\n", *email)
		})
		return
	}

	password := os.Getenv("USERADD_PASSWORD")
	r := strings.ToUpper(strings.TrimSpace(*role))
	if *email == "" || password == "" || (r != model.RoleVendor && r != model.RoleAdmin) {
		fmt.Fprintln(os.Stderr, "usage: USERADD_PASSWORD=... useradd -email a@b.c [-role VENDOR|ADMIN]")
		os.Exit(2)
	}

	withRepo(func(ctx context.Context, users *repository.UserRepo, cfg config.Config) {
		id, err := users.Create(ctx, *email, password, r, cfg.BcryptCost)
		if err != nil {
			log.Fatalf("create user: %v", err)
		}
		fmt.Printf("created %s user id=%d\n", r, id)
	})
}

func withRepo(fn func(ctx context.Context, users *repository.UserRepo, cfg config.Config)) {
	cfg := config.Load()
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fn(ctx, repository.NewUserRepo(db), cfg)
}
