package cli

import (
	"fmt"

	"support_chat_server/pkg/poller"

	"github.com/spf13/cobra"
)

var startFollow bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a support session as the customer",
	Long: `Start a support session. The server assigns an agent or queues the session.

Examples:
  support_chat_client start
  support_chat_client start --follow`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&startFollow, "follow", "f", false, "keep polling after the session starts")
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	session, err := transport.Start(ctx)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	printSession(session)
	if !startFollow {
		return nil
	}
	return follow(ctx, poller.New(transport, session.SessionId))
}
