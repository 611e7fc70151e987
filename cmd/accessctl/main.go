// Command accessctl is an operator tool for the access gateway. It mints and
// checks capabilities offline with the shared signing secret and drives the
// navigation gate against a running gateway.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mo-amir99/lms-access-gateway/internal/features/capability"
	"github.com/mo-amir99/lms-access-gateway/internal/gate"
	"github.com/mo-amir99/lms-access-gateway/pkg/config"
	"github.com/mo-amir99/lms-access-gateway/pkg/logger"
	"github.com/mo-amir99/lms-access-gateway/pkg/types"
)

const usage = `usage: accessctl <command> [flags]

commands:
  sign     mint a capability for a content item
  verify   check a capability (JSON) against the signing secret
  gate     run one navigation through the access gate`

func main() {
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "sign":
		err = runSign(args[1:], stdout)
	case "verify":
		err = runVerify(args[1:], stdout)
	case "gate":
		err = runGate(ctx, args[1:], stdout)
	default:
		fmt.Fprintln(stderr, usage)
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "accessctl %s: %v\n", args[0], err)
		if errors.Is(err, flag.ErrHelp) || errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

var errUsage = errors.New("invalid arguments")

func signerFlags(fs *flag.FlagSet) (*string, *time.Duration) {
	secret := fs.String("secret", os.Getenv("SIGNED_URL_SECRET"), "signing secret (default $SIGNED_URL_SECRET)")
	ttl := fs.Duration("ttl", 2*time.Hour, "capability lifetime")
	return secret, ttl
}

func runSign(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	secret, ttl := signerFlags(fs)
	contentID := fs.String("content", "", "content ID")
	rawType := fs.String("type", "", "content type (video, quiz, file)")
	userID := fs.String("user", "", "user ID the capability is bound to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *secret == "" || *contentID == "" || *userID == "" {
		return fmt.Errorf("%w: -secret, -content and -user are required", errUsage)
	}
	ct, err := types.ParseContentType(*rawType)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	issued, err := capability.NewSigner(*secret, *ttl).Issue(*contentID, ct, *userID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"signedParams": issued.Capability,
		"expiresAt":    issued.ExpiresAt.Format(time.RFC3339),
	})
}

func runVerify(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	secret, ttl := signerFlags(fs)
	params := fs.String("params", "", "capability JSON as returned by sign")
	userID := fs.String("user", "", "optional user the capability must be bound to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *secret == "" || *params == "" {
		return fmt.Errorf("%w: -secret and -params are required", errUsage)
	}

	var c capability.Capability
	if err := json.Unmarshal([]byte(*params), &c); err != nil {
		return fmt.Errorf("%w: %v", capability.ErrMalformed, err)
	}

	if err := capability.NewSigner(*secret, *ttl).Check(c); err != nil {
		return err
	}
	if *userID != "" && *userID != c.UserID {
		return capability.ErrSubjectMismatch
	}

	fmt.Fprintf(stdout, "valid until %s\n", c.ExpiresAt().Format(time.RFC3339))
	return nil
}

func runGate(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("gate", flag.ContinueOnError)
	backend := fs.String("backend", envOr("GATE_BACKEND_URL", "http://localhost:8080"), "gateway base URL")
	token := fs.String("token", os.Getenv("ACCESSCTL_TOKEN"), "bearer token of the session")
	timeout := fs.Duration("timeout", gate.DefaultTimeout, "access check timeout")
	page := fs.String("payment-page", envOr("GATE_PAYMENT_PAGE", "section-payment.html"), "payment page for denials")
	subjectPage := fs.String("subject-payment-page", envOr("GATE_SUBJECT_PAYMENT_PAGE", "subject-payment.html"), "payment page for subject denials")
	rawType := fs.String("type", "", "content type (subject, section, video, quiz, file)")
	contentID := fs.String("content", "", "content ID")
	sectionID := fs.String("section", "", "owning section ID")
	subjectID := fs.String("subject", "", "subject ID")
	destination := fs.String("next", "", "destination on success")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ct, err := types.ParseContentType(*rawType)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	g := gate.New(config.GateConfig{
		BackendURL:         *backend,
		Timeout:            *timeout,
		PaymentPage:        *page,
		SubjectPaymentPage: *subjectPage,
	}, gate.StaticSession(*token), logger.Discard())

	decision := g.Navigate(ctx, gate.Target{
		ContentType: ct,
		ContentID:   *contentID,
		SectionID:   *sectionID,
		SubjectID:   *subjectID,
		Destination: *destination,
	})

	fmt.Fprintln(stdout, decision.String())
	if decision.State != gate.StateGranted {
		return fmt.Errorf("navigation %s (%s)", decision.State, decision.Reason)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
