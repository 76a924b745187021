package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ceodesk/errnotify/internal/notifier"
)

var rootCmd = &cobra.Command{
	Use:   "errnotify",
	Short: "Send a test error notification email",
	Long: "Simulates a database connection error and emails an alert for it " +
		"using the SMTP settings from the environment or a .env file.",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDemo,
}

// notify is swapped out in tests.
var notify = notifier.NotifyFromEnvTo

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// ConnectionError is the failure the demo simulates.
type ConnectionError struct {
	Addr string
}

func (e *ConnectionError) Error() string {
	return "Unable to connect to database at " + e.Addr
}

func connectToDatabase() error {
	return errors.WithStack(&ConnectionError{Addr: "localhost:5432"})
}

func runDemo(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	rule := strings.Repeat("=", 60)

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "CEODesk Error Notification System - Testing")
	fmt.Fprintln(out, rule)

	fmt.Fprintln(out, "\n🧪 Simulating a database connection error...")
	if err := connectToDatabase(); err != nil {
		fmt.Fprintf(out, "\n❌ Error caught: %v\n", err)
		fmt.Fprintln(out, "\n📧 Sending error notification email...")

		ok := notify(cmdContext(cmd), out, err, "Failed to connect to PostgreSQL database during startup")
		if ok {
			fmt.Fprintln(out, "\n✅ Test completed successfully! Check your email.")
		} else {
			fmt.Fprintln(out, "\n⚠️ Test completed but email sending failed. Please check your SMTP configuration.")
		}
	}

	printReminder(out, rule)
	return nil
}

func printReminder(out io.Writer, rule string) {
	fmt.Fprintln(out, "\n"+rule)
	fmt.Fprintln(out, "Make sure to set up your .env file with:")
	fmt.Fprintln(out, "SMTP_HOST=smtp.gmail.com")
	fmt.Fprintln(out, "SMTP_PORT=587")
	fmt.Fprintln(out, "SMTP_USER=your-email@gmail.com")
	fmt.Fprintln(out, "SMTP_PASS=your-app-password")
	fmt.Fprintln(out, "ERROR_NOTIFICATION_EMAIL=admin@example.com")
	fmt.Fprintln(out, rule)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
