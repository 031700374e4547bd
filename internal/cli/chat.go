package cli

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/bufbuild/connect-go"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"

	"github.com/planforge/planforge/internal/rpc"
	agentrpc "github.com/planforge/planforge/internal/rpc/agent"
	"github.com/planforge/planforge/internal/rpc/connectjson"
)

// NewChatCmd wires the chat command to stream tokens from the daemon.
func NewChatCmd(opts *Options) *cobra.Command {
	var modelOverride string
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat \"<prompt>\"",
		Short: "Send a prompt to the daemon and stream the reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			prompt := args[0]
			if strings.TrimSpace(prompt) == "" {
				return fmt.Errorf("prompt cannot be empty")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if sessionID == "" {
				sessionID = "cli-" + uuid.NewString()
			}
			reqBody := rpc.ChatTaskRequest{
				SessionID:     sessionID,
				CorrelationID: sessionID + "-corr",
				Model:         modelOverride,
				Prompt:        prompt,
			}

			baseURL := daemonURL(cfg.Server.Addr)
			switch strings.ToLower(strings.TrimSpace(cfg.Server.Transport)) {
			case "ndjson":
				return chatNDJSON(ctx, cmd, baseURL+"/agent/chat", reqBody)
			default:
				return chatConnect(ctx, cmd, baseURL+agentrpc.ConnectChatProcedure, reqBody)
			}
		},
	}

	cmd.Flags().StringVar(&modelOverride, "model", "", "Override logical model name for this turn")
	cmd.Flags().StringVar(&sessionID, "session", "", "Reuse a session id to keep conversation context")
	return cmd
}

func daemonURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func chatNDJSON(ctx context.Context, cmd *cobra.Command, url string, reqBody rpc.ChatTaskRequest) error {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var evt rpc.ChatEvent
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if err := renderEvent(cmd, evt); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func chatConnect(ctx context.Context, cmd *cobra.Command, url string, reqBody rpc.ChatTaskRequest) error {
	client := connect.NewClient[rpc.ChatStreamRequest, rpc.ChatEvent](buildH2CClient(), url, connect.WithCodec(connectjson.Codec{}))
	stream := client.CallBidiStream(ctx)

	if err := stream.Send(&rpc.ChatStreamRequest{Chat: &reqBody}); err != nil {
		return err
	}

	// propagate cancellation to the daemon.
	go func() {
		<-ctx.Done()
		_ = stream.Send(&rpc.ChatStreamRequest{Cancel: true, SessionID: reqBody.SessionID, CorrelationID: reqBody.CorrelationID})
		_ = stream.CloseRequest()
	}()

	for {
		evt, err := stream.Receive()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := renderEvent(cmd, *evt); err != nil {
			return err
		}
	}
	_ = stream.CloseRequest()
	return stream.CloseResponse()
}

func renderEvent(cmd *cobra.Command, evt rpc.ChatEvent) error {
	switch evt.Type {
	case "token":
		fmt.Fprint(cmd.OutOrStdout(), evt.Token)
	case "message":
		fmt.Fprintln(cmd.ErrOrStderr(), evt.Message)
	case "done":
		fmt.Fprintln(cmd.OutOrStdout())
	case "error":
		return fmt.Errorf("daemon error: %s", evt.Error)
	}
	return nil
}

func buildH2CClient() *http.Client {
	return &http.Client{
		Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		},
	}
}
