package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"support_chat_server/pkg/poller"

	"github.com/spf13/cobra"
)

var (
	sendEmotion  string
	sendIntent   string
	sendOutcome  string
	sendEntities []string
)

var sendCmd = &cobra.Command{
	Use:   "send <session_id> <text>",
	Short: "Send a message to a session",
	Long: `Send a message. Classifier annotations are optional.

Examples:
  support_chat_client send S20240101... "where is my order"
  support_chat_client send S20240101... "refund please" --emotion anger --entity "Order Number=A-1001"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendEmotion, "emotion", "", "emotion label")
	sendCmd.Flags().StringVar(&sendIntent, "intent", "", "intent label")
	sendCmd.Flags().StringVar(&sendOutcome, "outcome", "", "outcome signal (pending|resolved|escalated)")
	sendCmd.Flags().StringArrayVar(&sendEntities, "entity", nil, "entity as type=value, repeatable")
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	req := poller.SendRequest{Text: strings.Join(args[1:], " ")}
	if sendEmotion != "" {
		req.Emotion = &sendEmotion
	}
	if sendIntent != "" {
		req.Intent = &sendIntent
	}
	if sendOutcome != "" {
		req.Outcome = &sendOutcome
	}
	if len(sendEntities) > 0 {
		req.Entities = make(map[string]*string, len(sendEntities))
		for _, e := range sendEntities {
			k, v, ok := strings.Cut(e, "=")
			if !ok {
				return fmt.Errorf("invalid entity %q, want type=value", e)
			}
			value := v
			req.Entities[k] = &value
		}
	}

	sync := poller.New(transport, args[0])
	msg, err := sync.Send(ctx, req)
	if err != nil {
		var apiErr *poller.APIError
		if errors.As(err, &apiErr) && apiErr.Code == poller.CodeSessionNotActive {
			return fmt.Errorf("session %s is not active", args[0])
		}
		if msg == nil {
			return fmt.Errorf("send: %w", err)
		}
	}
	fmt.Printf("sent #%d\n", msg.MessageId)
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}
