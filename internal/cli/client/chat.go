package client

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// ChatRequest represents the chat API request.
type ChatRequest struct {
	Message   string `json:"message"`
	RAG       bool   `json:"rag"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse represents the chat API response.
type ChatResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// ChatCmd creates the chat command.
func ChatCmd() *cobra.Command {
	var (
		rag       bool
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the assistant",
		Long: `Sends a message to the assistant, or starts an interactive session
when no message is given. With --rag the answer is grounded in the
ingested documents and cites its source.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				return runChatOnce(api, args[0], rag, sessionID)
			}
			return runChatInteractive(api, rag, sessionID)
		},
	}

	cmd.Flags().BoolVar(&rag, "rag", false, "Ground answers in ingested documents")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID to continue a conversation")

	return cmd
}

func runChatOnce(api *APIClient, message string, rag bool, sessionID string) error {
	var resp ChatResponse
	req := ChatRequest{Message: message, RAG: rag, SessionID: sessionID}
	if err := api.Post("/chat", req, &resp); err != nil {
		return err
	}

	fmt.Println(resp.Message)
	return nil
}

func runChatInteractive(api *APIClient, rag bool, sessionID string) error {
	mode := "off"
	if rag {
		mode = "on"
	}
	fmt.Printf("Interactive chat (rag %s). Type 'exit' to quit.\n", mode)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if message == "exit" || message == "quit" {
			break
		}

		var resp ChatResponse
		req := ChatRequest{Message: message, RAG: rag, SessionID: sessionID}
		if err := api.Post("/chat", req, &resp); err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}

		// Keep the session so follow-up turns share history.
		sessionID = resp.SessionID
		fmt.Println(resp.Message)
	}

	return scanner.Err()
}
