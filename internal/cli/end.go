package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var endCmd = &cobra.Command{
	Use:   "end <session_id>",
	Short: "End a session",
	Long: `End a session. Ending an already ended session is not an error.

Examples:
  support_chat_client end S20240101...`,
	Args: cobra.ExactArgs(1),
	RunE: runEnd,
}

func runEnd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	res, err := transport.End(ctx, args[0])
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if res.Changed {
		fmt.Printf("session %s ended\n", res.SessionId)
	} else {
		fmt.Printf("session %s was already ended\n", res.SessionId)
	}
	return nil
}
