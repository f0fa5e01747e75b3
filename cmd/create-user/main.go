package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"case_relay_go/config"
	"case_relay_go/db"
	"case_relay_go/models"
	"case_relay_go/services"

	"golang.org/x/term"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(db.Options{
		Path:           cfg.DBPath,
		TursoURL:       cfg.TursoDatabaseURL,
		TursoAuthToken: cfg.TursoAuthToken,
		Environment:    cfg.Environment,
	}); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(&models.User{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) string {
		fmt.Print(label + ": ")
		value, _ := reader.ReadString('\n')
		return strings.TrimSpace(value)
	}

	fmt.Println("=== Create Police Account ===")
	fmt.Println()

	input := services.RegisterInput{
		PoliceID:  prompt("Police ID"),
		FirstName: prompt("First name"),
		LastName:  prompt("Last name"),
		Email:     prompt("Email"),
		Phone:     prompt("Phone"),
	}
	role := prompt("Role (Officer/Supervisor/Admin) [Officer]")
	if role == "" {
		role = models.RoleOfficer
	}

	// Get passcode securely
	fmt.Print("Passcode: ")
	passcodeBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		log.Fatalf("Failed to read passcode: %v", err)
	}
	input.Passcode = string(passcodeBytes)
	fmt.Println() // New line after passcode input

	ctx := context.Background()
	// Events are not dispatched, so no welcome email goes out from the console
	user, _, err := services.NewAuthService(db.DB, cfg).Register(ctx, input)
	if err != nil {
		log.Fatalf("Failed to create user: %s", services.Reason(err, err.Error()))
	}

	if role != models.RoleOfficer {
		user, _, err = services.NewUserService(db.DB).ChangeRole(ctx, user.ID, role, services.SystemActor())
		if err != nil {
			log.Fatalf("User created but role could not be set: %s", services.Reason(err, err.Error()))
		}
	}

	fmt.Println()
	fmt.Println("✓ User created successfully!")
	fmt.Printf("  ID: %d\n", user.ID)
	fmt.Printf("  Police ID: %s\n", user.PoliceID)
	fmt.Printf("  Name: %s\n", user.FullName())
	fmt.Printf("  Role: %s\n", user.Role)
	fmt.Println()
	fmt.Printf("The user can now log in at %s/api/auth/login\n", cfg.AppURL)
}
