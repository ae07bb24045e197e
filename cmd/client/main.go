package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Nishant28-sh/TradeTogether/internal/chatclient"
	"github.com/Nishant28-sh/TradeTogether/internal/domain"
	"github.com/Nishant28-sh/TradeTogether/internal/room"
)

// terminalNotifier rings the terminal bell and prints a one-line toast
// for messages arriving outside the active room.
type terminalNotifier struct{}

func (terminalNotifier) Notify(roomID string, msg domain.ChatMessage) {
	fmt.Printf("\a[%s] %s: %s\n", roomID, msg.SenderName, msg.Body)
}

func main() {
	var (
		url       = flag.String("url", "ws://localhost:4000/chat/ws", "chat server websocket URL")
		token     = flag.String("token", "", "auth token (optional)")
		userID    = flag.String("id", "", "your user id")
		username  = flag.String("name", "", "your display name")
		otherID   = flag.String("other", "", "peer user id for a private chat")
		tradeID   = flag.String("trade", "", "trade/product id for a trade-scoped chat")
		isPrivate = flag.Bool("private", false, "start in a private chat")
	)
	flag.Parse()

	if *userID == "" || *username == "" {
		fmt.Fprintln(os.Stderr, "both -id and -name are required")
		os.Exit(1)
	}

	ctrl, err := chatclient.New(
		chatclient.Config{
			URL:      *url,
			Token:    *token,
			Identity: chatclient.Identity{ID: *userID, Name: *username},
		},
		chatclient.Callbacks{
			OnMessage: func(msg domain.ChatMessage, active bool) {
				if !active {
					return // the notifier already announced it
				}
				if msg.IsSystem() {
					fmt.Printf("        -- %s --\n", msg.Body)
					return
				}
				fmt.Printf("[%s] %s: %s\n", msg.SentAt.Local().Format("15:04:05"), msg.SenderName, msg.Body)
			},
			OnHistory: func(roomID string, messages []domain.ChatMessage) {
				fmt.Printf("--- %s (%d recent messages) ---\n", roomID, len(messages))
				for _, msg := range messages {
					if msg.IsSystem() {
						fmt.Printf("        -- %s --\n", msg.Body)
						continue
					}
					fmt.Printf("[%s] %s: %s\n", msg.SentAt.Local().Format("15:04:05"), msg.SenderName, msg.Body)
				}
			},
			OnTyping: func(username string, isTyping bool) {
				if isTyping {
					fmt.Printf("        %s is typing...\n", username)
				}
			},
			OnState: func(state chatclient.State) {
				fmt.Printf("* %s\n", state)
				if state == chatclient.StateFailed {
					fmt.Println("* connection lost for good; type /retry to try again")
				}
			},
			OnError: func(err error) {
				fmt.Printf("! %v\n", err)
			},
		},
		terminalNotifier{},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ctrl.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer ctrl.Close()

	if *isPrivate || *otherID != "" {
		if err := ctrl.SetActiveRoom(room.Context{
			IsPrivate:      true,
			SelfID:         *userID,
			OtherID:        *otherID,
			TradeContextID: *tradeID,
		}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	fmt.Println("commands: /global, /private <userId>, /trade <tradeId> <userId>, /unread, /retry, /quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "/quit":
			return

		case line == "/retry":
			if err := ctrl.Retry(); err != nil {
				fmt.Printf("! %v\n", err)
			}

		case line == "/global":
			if err := ctrl.SetActiveRoom(room.Context{}); err != nil {
				fmt.Printf("! %v\n", err)
			}

		case strings.HasPrefix(line, "/private "):
			other := strings.TrimSpace(strings.TrimPrefix(line, "/private "))
			err := ctrl.SetActiveRoom(room.Context{IsPrivate: true, SelfID: *userID, OtherID: other})
			if err != nil {
				fmt.Printf("! %v\n", err)
			}

		case strings.HasPrefix(line, "/trade "):
			fields := strings.Fields(strings.TrimPrefix(line, "/trade "))
			if len(fields) != 2 {
				fmt.Println("! usage: /trade <tradeId> <userId>")
				continue
			}
			err := ctrl.SetActiveRoom(room.Context{
				IsPrivate:      true,
				SelfID:         *userID,
				OtherID:        fields[1],
				TradeContextID: fields[0],
			})
			if err != nil {
				fmt.Printf("! %v\n", err)
			}

		case line == "/unread":
			counts := ctrl.UnreadCounts()
			if len(counts) == 0 {
				fmt.Println("no unread messages")
				continue
			}
			rooms := make([]string, 0, len(counts))
			for roomID := range counts {
				rooms = append(rooms, roomID)
			}
			sort.Strings(rooms)
			for _, roomID := range rooms {
				fmt.Printf("unread in %s: %d\n", roomID, counts[roomID])
			}

		default:
			if err := ctrl.Send(line); err != nil {
				switch {
				case errors.Is(err, chatclient.ErrEmptyMessage):
					fmt.Println("! cannot send an empty message")
				case errors.Is(err, chatclient.ErrNotConnected):
					fmt.Println("! not connected; wait for reconnection or /retry")
				default:
					fmt.Printf("! %v\n", err)
				}
			}
		}
	}
}
