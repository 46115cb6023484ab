// Command chat is a terminal client for the chat gateway. It streams
// assistant replies as they arrive and keeps the conversation locally,
// resending the full history each turn.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/halcyonai/chat-gateway/internal/chat"
)

func main() {
	var (
		gatewayURL string
		token      string
	)
	flag.StringVar(&gatewayURL, "url", "http://localhost:8080", "gateway base URL")
	flag.StringVar(&token, "token", "", "bearer token (defaults to CHAT_TOKEN)")
	flag.Parse()

	_ = godotenv.Load()

	// The client prints the stream itself; keep logging out of the way.
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)

	if token == "" {
		token = os.Getenv("CHAT_TOKEN")
	}
	if token == "" {
		var err error
		token, err = promptToken()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if token == "" {
		fmt.Fprintln(os.Stderr, "Error: no token provided (use --token or CHAT_TOKEN)")
		os.Exit(1)
	}

	session := chat.NewSession(chat.NewClient(gatewayURL, token))
	session.OnDelta = func(text string) {
		fmt.Print(text)
	}

	fmt.Println("Connected to", gatewayURL)
	fmt.Println("Commands: /reset clears the conversation, /tokens shows the prompt estimate, /quit exits.")
	runREPL(session)
}

// promptToken reads the token without echo when stdin is a terminal.
func promptToken() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", nil
	}
	fmt.Fprint(os.Stderr, "Token: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func runREPL(session *chat.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return
		case "/reset":
			session.Reset()
			fmt.Println("Conversation cleared.")
			continue
		case "/tokens":
			fmt.Printf("Prompt is roughly %d tokens.\n", chat.EstimateTokens(session.History()))
			continue
		}

		_, err := session.SendTurn(context.Background(), line)
		fmt.Println()
		if err != nil {
			printTurnError(err)
		}
	}
}

func printTurnError(err error) {
	var streamErr *chat.StreamError
	switch {
	case errors.As(err, &streamErr):
		// The gateway reported the failure mid-stream. Any partial reply
		// printed above was display-only; resending the prompt retries the
		// turn from the user message.
		fmt.Fprintf(os.Stderr, "\n[stream error] %s\n", streamErr.Message)
	case errors.Is(err, chat.ErrTurnInFlight):
		fmt.Fprintln(os.Stderr, "\nStill waiting on the previous turn.")
	default:
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}
}
