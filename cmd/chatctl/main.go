package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/tullo/chatdesk/config"
	"github.com/tullo/chatdesk/internal/api"
	"github.com/tullo/chatdesk/internal/auth"
	"github.com/tullo/chatdesk/internal/models"
	"github.com/tullo/chatdesk/internal/validation"
	"github.com/tullo/chatdesk/internal/viewmodel"
)

const usage = `Usage: chatctl <command> [args]

Commands:
  login TOKEN          store an access token in CHAT_TOKEN_FILE
  conversations        list conversations
  history ID           show the latest messages of a conversation
  send ID TEXT...      send a message
  archive ID [false]   archive (or unarchive) a conversation
  star ID [false]      star (or unstar) a conversation
  delete ID            delete a conversation`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	command, args := os.Args[1], os.Args[2:]

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if command == "login" {
		need(args, 1)
		if err := login(cfg.Credentials.TokenFile, args[0]); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		return
	}

	tokens := auth.NewTokenSource(cfg.Credentials.TokenFile, cfg.Credentials.TokenEnv)
	token, err := tokens.Token()
	if err != nil {
		log.Fatalf("Failed to read access token: %v", err)
	}
	claims, err := auth.ParseClaims(token)
	if err != nil {
		log.Fatalf("Invalid access token: %v", err)
	}

	client := api.NewClient(cfg.API.BaseURL, tokens, cfg.API.RequestTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.RequestTimeout+5*time.Second)
	defer cancel()

	me := claims.Identity()
	switch command {
	case "conversations":
		err = listConversations(ctx, client, me)

	case "history":
		need(args, 1)
		err = showHistory(ctx, client, args[0], me, cfg.API.PageSize)

	case "send":
		need(args, 2)
		text := strings.Join(args[1:], " ")
		if err = validation.Message(text); err == nil {
			var m *models.Message
			if m, err = client.PostMessage(ctx, args[0], models.SendMessageRequest{Content: text, Type: models.MessageText}); err == nil {
				fmt.Printf("Sent %s\n", m.ID)
			}
		}

	case "archive":
		need(args, 1)
		err = client.SetArchived(ctx, args[0], flag(args))

	case "star":
		need(args, 1)
		err = client.SetStarred(ctx, args[0], flag(args))

	case "delete":
		need(args, 1)
		err = client.DeleteConversation(ctx, args[0])

	default:
		fmt.Printf("Unknown command: %s\n\n%s\n", command, usage)
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("%s failed: %v", command, err)
	}
}

func need(args []string, n int) {
	if len(args) < n {
		fmt.Println(usage)
		os.Exit(1)
	}
}

// flag reads the optional boolean after the id, defaulting to true
func flag(args []string) bool {
	return len(args) < 2 || args[1] != "false"
}

func login(tokenFile, token string) error {
	if tokenFile == "" {
		return fmt.Errorf("CHAT_TOKEN_FILE is not set")
	}
	claims, err := auth.FileTokenStore{Path: tokenFile}.Login(token)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s\n", claims.Identity())
	return nil
}

func listConversations(ctx context.Context, client *api.Client, me string) error {
	list, err := client.ListConversations(ctx)
	if err != nil {
		return err
	}

	for _, c := range viewmodel.ToConversations(list, me, time.Now()) {
		marks := ""
		if c.Starred {
			marks += "*"
		}
		if c.Archived {
			marks += "A"
		}
		fmt.Printf("%-24s %-2s %-30s %3d  %-8s %s\n",
			c.ID, marks, c.Name, c.UnreadCount, c.LastMessageTime, c.LastMessage)
	}
	return nil
}

func showHistory(ctx context.Context, client *api.Client, conversationID, me string, limit int) error {
	page, err := client.GetMessages(ctx, conversationID, "", limit)
	if err != nil {
		return err
	}

	msgs := viewmodel.GroupByDay(viewmodel.ToMessages(page.Messages, me), time.Now())
	for _, m := range msgs {
		if m.ShowDateDivider {
			fmt.Printf("--- %s ---\n", m.DateLabel)
		}
		who := m.SenderName
		if m.Sender == viewmodel.SenderMe {
			who = "me"
		} else if who == "" {
			who = m.SenderID
		}
		fmt.Printf("%s  %-16s %s\n", m.Timestamp, who, m.Content)
	}
	if page.HasMore {
		fmt.Println("(older messages available)")
	}
	return nil
}
