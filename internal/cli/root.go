// Package cli 命令行客户端，通过轮询同步器访问会话接口
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"support_chat_server/pkg/poller"

	"github.com/spf13/cobra"
)

var (
	// 全局参数
	serverURL string
	token     string
	timeout   time.Duration

	transport *poller.HTTPTransport
)

var rootCmd = &cobra.Command{
	Use:   "support_chat_client",
	Short: "Customer support chat client",
	Long: `support_chat_client 以轮询方式参与客服会话。

身份凭证通过 --token 或环境变量 SUPPORT_CHAT_TOKEN 传入。

Examples:
  support_chat_client start
  support_chat_client tail S20240101...
  support_chat_client send S20240101... "我的订单还没到"
  support_chat_client end S20240101...`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		if token == "" {
			token = os.Getenv("SUPPORT_CHAT_TOKEN")
		}
		if token == "" {
			return fmt.Errorf("missing token: use --token or SUPPORT_CHAT_TOKEN")
		}
		transport = poller.NewHTTPTransport(serverURL, token, timeout)
		return nil
	},
}

// Execute 执行根命令
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://127.0.0.1:8000", "server base url")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "access token")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(endCmd)
}

// signalContext Ctrl+C 时取消
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printSession(s *poller.Session) {
	fmt.Printf("session:  %s\n", s.SessionId)
	fmt.Printf("state:    %s\n", s.State)
	if s.AgentId != "" {
		fmt.Printf("agent:    %s\n", s.AgentId)
	}
	if s.QueuePosition != nil {
		fmt.Printf("queue:    %d\n", *s.QueuePosition)
	}
	fmt.Printf("outcome:  %s\n", s.Outcome)
}

func printMessages(msgs []poller.Message) {
	for _, m := range msgs {
		line := fmt.Sprintf("[%d] %s %-8s %s", m.MessageId, m.Timestamp.Local().Format("15:04:05"), m.SenderRole, m.Text)
		var tags []string
		if m.Emotion != nil {
			tags = append(tags, *m.Emotion)
		}
		if m.Intent != nil {
			tags = append(tags, "intent="+*m.Intent)
		}
		for k, v := range m.Entities {
			tags = append(tags, k+"="+v)
		}
		if len(tags) > 0 {
			line += "  (" + strings.Join(tags, ", ") + ")"
		}
		fmt.Println(line)
	}
}
