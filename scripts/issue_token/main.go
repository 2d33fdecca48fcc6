package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/noah-isme/smart-allotment-api/internal/models"
	"github.com/noah-isme/smart-allotment-api/internal/service"
	"github.com/noah-isme/smart-allotment-api/pkg/config"
)

func main() {
	var (
		name   string
		userID string
		role   string
		expiry time.Duration
	)

	flag.StringVar(&name, "name", "", "Display name recorded on bookings")
	flag.StringVar(&userID, "user-id", "", "Subject claim (defaults to name)")
	flag.StringVar(&role, "role", string(models.RoleFaculty), "admin, faculty or student")
	flag.DurationVar(&expiry, "expiry", 0, "Token lifetime (defaults to JWT_EXPIRATION)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if expiry <= 0 {
		expiry = cfg.JWT.Expiration
	}

	tokens := service.NewTokenService(service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: expiry,
	})
	token, expiresAt, err := tokens.Issue(userID, name, models.Role(role))
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	fmt.Println(token)
	fmt.Printf("expires at %s\n", expiresAt.Format(time.RFC3339))
}
