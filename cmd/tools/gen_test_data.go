package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"
	"tutor-chat/auth"
	"tutor-chat/domain"
	"tutor-chat/domain/event"
	"tutor-chat/repositories"
	"tutor-chat/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// discard drops events, nobody is subscribed while seeding
type discard struct{}

func (discard) Publish(context.Context, event.DomainEvent) error { return nil }

type line struct {
	from    domain.UserID
	content string
}

var scenarios = []struct {
	contact domain.ContactCommand
	lines   []line
}{
	{
		contact: domain.ContactCommand{From: "student-1", To: "tutor-1", Origin: domain.OriginTutorListing},
		lines: []line{
			{from: "tutor-1", content: "Hello! Which subject do you need help with?"},
			{from: "student-1", content: "Calculus, mostly integrals."},
		},
	},
	{
		contact: domain.ContactCommand{From: "tutor-2", To: "student-1", Origin: domain.OriginHelpRequest, Subject: "Organic chemistry"},
		lines: []line{
			{from: "student-1", content: "Thanks for reaching out, are you free on Saturday?"},
		},
	},
	{
		contact: domain.ContactCommand{From: "student-2", To: "tutor-1", Origin: domain.OriginDirect},
	},
}

func main() {
	_ = godotenv.Load()
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	secret := flag.String("secret", os.Getenv("AUTH_SECRET"), "Secret used to sign the printed tokens")
	issuer := flag.String("issuer", os.Getenv("AUTH_ISSUER"), "Issuer of the printed tokens")
	flag.Parse()

	logger := logs.GetLoggerFromLevel(slog.LevelInfo)
	db, err := badger.Open(badger.DefaultOptions(*dbPath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	conversations := repositories.NewConversationRepository(db)
	messages := repositories.NewMessageRepository(db, logger)
	messageService := services.NewMessageService(logger, conversations, messages, discard{}, nil, 2000)
	contacts := services.NewContactService(logger, services.NewConversationResolver(logger, conversations, nil),
		messageService, offlineDirectory{}, services.Greetings{
			Tutor:   services.DefaultTutorGreeting,
			Request: services.DefaultRequestGreeting,
		})

	ctx := context.Background()
	users := make(map[domain.UserID]struct{})
	for _, scenario := range scenarios {
		result, err := contacts.Contact(ctx, scenario.contact)
		if err != nil {
			log.Fatalf("Contact %s -> %s failed: %v", scenario.contact.From, scenario.contact.To, err)
		}
		users[scenario.contact.From] = struct{}{}
		users[scenario.contact.To] = struct{}{}
		if !result.Created {
			fmt.Printf("Conversation %s already seeded\n", result.ConversationID)
			continue
		}
		for _, l := range scenario.lines {
			_, err = messageService.Append(ctx, domain.AppendMessageCommand{
				Conversation: result.ConversationID,
				SenderID:     l.from,
				Content:      l.content,
			})
			if err != nil {
				log.Fatalf("Append failed: %v", err)
			}
		}
		fmt.Printf("Conversation %s seeded\n", result.ConversationID)
	}

	if *secret == "" {
		return
	}
	verifier := auth.NewVerifier(*secret, *issuer)
	fmt.Println("\nTokens valid for 24h:")
	for userID := range users {
		token, err := verifier.GenerateToken(userID, 24*time.Hour)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%-10s %s\n", userID, token)
	}
}

type offlineDirectory struct{}

func (offlineDirectory) GetUserDisplayInfo(_ context.Context, userID domain.UserID) (domain.UserDisplayInfo, error) {
	return domain.UserDisplayInfo{UserID: userID, DisplayName: string(userID)}, nil
}
