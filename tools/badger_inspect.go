package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"tutor-chat/domain"
	"tutor-chat/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	user := flag.String("user", "", "Show the conversations of a user")
	conversation := flag.String("conversation", "", "Show the messages of a conversation")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	conversations := repositories.NewConversationRepository(db)
	messages := repositories.NewMessageRepository(db, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	table := newTable()

	switch {
	case *conversation != "":
		err = printMessages(table, messages, domain.ConversationID(*conversation))
	case *user != "":
		err = printInbox(table, conversations, messages, domain.UserID(*user))
	default:
		err = printConversations(table, db, conversations)
	}
	if err != nil {
		log.Fatal(err)
	}
	table.Render()
}

func newTable() *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func printConversations(table *tablewriter.Table, db *badger.DB, conversations repositories.ConversationRepository) error {
	table.SetHeader([]string{"Conversation", "Participants", "Created"})
	var ids []domain.ConversationID
	err := db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		prefix := []byte("conv:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, domain.ConversationID(strings.TrimPrefix(string(it.Item().Key()), "conv:")))
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, id := range ids {
		c, err := conversations.GetConversation(id)
		if err != nil {
			fmt.Printf("Error reading conversation %s: %v\n", id, err)
			continue
		}
		table.Append([]string{
			string(c.ID),
			c.PairKey().String(),
			c.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return nil
}

func printInbox(table *tablewriter.Table, conversations repositories.ConversationRepository,
	messages repositories.MessageRepository, userID domain.UserID) error {
	table.SetHeader([]string{"Conversation", "With", "Last message", "Unread"})
	ids, err := conversations.ListConversationIDs(userID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		c, err := conversations.GetConversation(id)
		if err != nil {
			return err
		}
		last, err := messages.GetLastMessage(id)
		if err != nil {
			return err
		}
		unread, err := messages.CountUnread(id, userID)
		if err != nil {
			return err
		}
		preview := "-"
		if last != nil {
			preview = last.CreatedAt.Format("15:04:05") + " " + truncate(last.Content, 40)
		}
		other, _ := c.Other(userID)
		table.Append([]string{string(id), string(other), preview, strconv.Itoa(unread)})
	}
	return nil
}

func printMessages(table *tablewriter.Table, messages repositories.MessageRepository, id domain.ConversationID) error {
	table.SetHeader([]string{"Message", "Sender", "At", "Read", "Content"})
	history, err := messages.GetMessages(id)
	if err != nil {
		return err
	}
	for _, m := range history {
		table.Append([]string{
			m.ID.String()[:8],
			string(m.SenderID),
			m.CreatedAt.Format("15:04:05.000"),
			strconv.FormatBool(m.Read),
			truncate(m.Content, 60),
		})
	}
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
