package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/campusshelf/campusshelf/internal/config"
	"github.com/campusshelf/campusshelf/internal/db"
)

// setrole is a maintenance tool for changing a user's role directly,
// e.g. bootstrapping the first admin or granting teacher accounts.
func main() {
	email := flag.String("email", "", "Email of the user to update")
	role := flag.String("role", "admin", "Role to assign: student, teacher or admin")
	flag.Parse()

	if *email == "" {
		log.Fatalf("usage: go run cmd/adminutil/setrole/main.go -email user@example.com -role admin")
	}
	switch *role {
	case "student", "teacher", "admin":
	default:
		log.Fatalf("invalid role %q: must be student, teacher or admin", *role)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	db.Init(ctx, cfg, logger)
	defer db.Close()

	ct, err := db.Conn.Exec(ctx, `UPDATE users SET role = $1 WHERE email = $2`, *role, *email)
	if err != nil {
		log.Fatalf("failed to update role: %v", err)
	}
	if ct.RowsAffected() == 0 {
		log.Fatalf("no user found with email: %s", *email)
	}

	fmt.Printf("✅ %s is now a %s\n", *email, *role)
}
