package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Smoke test against a running server: opens the chat stream of a
// conversation as one user and writes into it as the other one.
func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Server base URL")
	conversation := flag.String("conversation", "", "Conversation id")
	viewerToken := flag.String("viewer-token", "", "Token of the user watching the stream")
	senderToken := flag.String("sender-token", "", "Token of the user writing")
	count := flag.Int("count", 3, "Messages to send")
	flag.Parse()
	if *conversation == "" || *viewerToken == "" || *senderToken == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	client := resty.New().SetBaseURL(strings.TrimRight(*baseURL, "/"))
	path := "/v1/conversations/" + *conversation

	stream, err := client.R().
		SetContext(ctx).
		SetAuthToken(*viewerToken).
		SetHeader("Accept", "text/event-stream").
		SetDoNotParseResponse(true).
		Get(path + "/stream")
	if err != nil {
		log.Fatalf("Stream failed: %v", err)
	}
	body := stream.RawBody()
	defer body.Close()
	if stream.StatusCode() != 200 {
		log.Fatalf("Stream refused: %d", stream.StatusCode())
	}

	received := make(chan string)
	go func() {
		defer close(received)
		scanner := bufio.NewScanner(body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data:") {
				received <- strings.TrimPrefix(line, "data:")
			}
		}
	}()
	fmt.Printf("history: %s\n", <-received)

	for i := 1; i <= *count; i++ {
		start := time.Now()
		resp, err := client.R().
			SetContext(ctx).
			SetAuthToken(*senderToken).
			SetBody(map[string]string{"content": fmt.Sprintf("smoke test %d", i)}).
			Post(path + "/messages")
		if err != nil || resp.IsError() {
			log.Fatalf("Append %d failed: %v %s", i, err, resp.String())
		}
		select {
		case data, ok := <-received:
			if !ok {
				log.Fatal("Stream closed")
			}
			fmt.Printf("live after %s: %s\n", time.Since(start).Round(time.Millisecond), data)
		case <-time.After(5 * time.Second):
			log.Fatalf("Message %d not delivered", i)
		case <-ctx.Done():
			return
		}
	}
}
