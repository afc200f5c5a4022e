package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AquaChat/backend/internal/chat"
	"github.com/GriffinCanCode/AquaChat/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AquaChat/backend/internal/persist"
	"github.com/GriffinCanCode/AquaChat/backend/internal/shared/id"
	"github.com/GriffinCanCode/AquaChat/backend/internal/shared/types"
)

// Options are the chat client flags, interpreted by github.com/jessevdk/go-flags.
type Options struct {
	URL          string `short:"u" long:"url" env:"AQUACHAT_URL" default:"http://localhost:8000/chat" description:"Chat endpoint"`
	Token        string `short:"t" long:"token" env:"AQUACHAT_TOKEN" description:"Bearer credential sent to the proxy"`
	DB           string `long:"db" env:"AQUACHAT_DB" description:"SQLite file for conversation history (disabled when empty)"`
	Conversation string `short:"c" long:"conversation" description:"Conversation ID to resume (new one when empty)"`
	Verbose      bool   `short:"v" long:"verbose" description:"Debug logging to stderr"`
}

func main() {
	opts := &Options{}
	if _, err := flags.NewParser(opts, flags.Default).Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts *Options) error {
	logCfg := logging.Config{Level: "warn", Development: true, OutputPaths: []string{"stderr"}}
	if opts.Verbose {
		logCfg.Level = "debug"
	}
	logger := logging.NewOrNop(logCfg)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conversationID := opts.Conversation
	if conversationID == "" {
		conversationID = id.NewConversationID().String()
	}

	client := chat.NewClient(opts.URL, opts.Token, logger.Component("chat"))

	var (
		session *chat.Session
		queue   *persist.Queue
	)
	if opts.DB != "" {
		store, err := persist.OpenSQLite(opts.DB)
		if err != nil {
			return err
		}
		defer store.Close()

		queue = persist.NewQueue(store, 16, logger.Component("persist"))
		defer queue.Close()

		history, err := store.History(ctx, conversationID)
		if err != nil {
			return err
		}
		session = chat.NewSession(client, conversationID, queue)
		session.Resume(history)
		if len(history) > 0 {
			fmt.Fprintf(os.Stderr, "Resumed %s (%d messages)\n", conversationID, len(history))
		}
	} else {
		session = chat.NewSession(client, conversationID, nil)
	}
	fmt.Fprintf(os.Stderr, "Conversation %s. Ask about aquaculture; Ctrl-D to quit.\n", conversationID)

	input := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !input.Scan() {
			fmt.Println()
			return input.Err()
		}
		text := strings.TrimSpace(input.Text())
		if text == "" {
			continue
		}

		printed := 0
		_, err := session.Send(ctx, text, func(msgs []types.Message) {
			last := msgs[len(msgs)-1]
			if last.Role != types.RoleAssistant {
				return
			}
			fmt.Print(last.Content[printed:])
			printed = len(last.Content)
		})
		fmt.Println()

		if err != nil {
			logger.Debug("Send failed", zap.Error(err))
			fmt.Fprintln(os.Stderr, chat.Notice(err))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
