package cli

import (
	"context"
	"errors"
	"fmt"

	"support_chat_server/pkg/poller"

	"github.com/spf13/cobra"
)

var tailInterval string

var tailCmd = &cobra.Command{
	Use:   "tail <session_id>",
	Short: "Print the session history and follow new messages",
	Long: `Fetch the full history, then poll for new messages until the session ends.

Examples:
  support_chat_client tail S20240101...
  support_chat_client tail S20240101... --interval 1s`,
	Args: cobra.ExactArgs(1),
	RunE: runTail,
}

func init() {
	tailCmd.Flags().StringVarP(&tailInterval, "interval", "i", "", "override the server advertised poll interval")
}

func runTail(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	var opts []poller.Option
	if tailInterval != "" {
		d, err := parseDuration(tailInterval)
		if err != nil {
			return err
		}
		opts = append(opts, poller.WithInterval(d))
	}
	return follow(ctx, poller.New(transport, args[0], opts...))
}

// follow 输出完整历史后持续轮询
func follow(ctx context.Context, sync *poller.Synchronizer) error {
	history, err := sync.Enter(ctx)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	printMessages(history)
	if sync.State() == poller.StateEnded {
		fmt.Println("-- session ended --")
		return nil
	}

	err = sync.Run(ctx, printMessages)
	switch {
	case errors.Is(err, context.Canceled):
		return nil
	case err != nil:
		return fmt.Errorf("poll: %w", err)
	}
	fmt.Println("-- session ended --")
	return nil
}
