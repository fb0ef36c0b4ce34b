package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

const chatHelp = `Commands:
  /retry           ask the last unanswered question again
  /suggest         show suggested questions
  /compare <q>     compare the selected documents
  /export <name>   save the conversation as html
  /docs            show the documents this chat is about
  /quit            leave
Anything else is sent as a question.`

func primeSuggestions(ctx context.Context, d *Deps) ([]string, error) {
	if err := d.Coordinator.PrimeSuggestions(ctx); err != nil {
		return nil, err
	}
	chat := d.Coordinator.Chat()
	if chat == nil {
		return nil, nil
	}
	return chat.Suggestions(), nil
}

func (h *Handler) askCommand() *cobra.Command {
	var docIDs []string
	cmd := &cobra.Command{
		Use:   "ask --doc <id> <question>",
		Short: "Ask a single question about one or more documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: h.run(func(cmd *cobra.Command, d *Deps, args []string) error {
			ctx := cmd.Context()
			if err := openChat(ctx, d, docIDs); err != nil {
				return err
			}
			msg, err := d.Coordinator.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			renderMessage(d.Prompt.Out(), *msg)
			renderSuggestions(d.Prompt.Out(), msg.SuggestedQuestions)
			return nil
		}),
	}
	cmd.Flags().StringSliceVar(&docIDs, "doc", nil, "document id to ask about (repeatable)")
	return cmd
}

func (h *Handler) compareCommand() *cobra.Command {
	var docIDs []string
	cmd := &cobra.Command{
		Use:   "compare --doc <id> --doc <id> <question>",
		Short: "Compare two or more documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: h.run(func(cmd *cobra.Command, d *Deps, args []string) error {
			ctx := cmd.Context()
			if err := openChat(ctx, d, docIDs); err != nil {
				return err
			}
			res, err := d.Coordinator.Compare(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(d.Prompt.Out(), res.Comparison)
			return nil
		}),
	}
	cmd.Flags().StringSliceVar(&docIDs, "doc", nil, "document id to compare (repeat at least twice)")
	return cmd
}

func (h *Handler) suggestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <doc_id>",
		Short: "Show example questions for a document",
		Args:  cobra.ExactArgs(1),
		RunE: h.run(func(cmd *cobra.Command, d *Deps, args []string) error {
			ctx := cmd.Context()
			if err := openChat(ctx, d, args); err != nil {
				return err
			}
			suggestions, err := primeSuggestions(ctx, d)
			if err != nil {
				return err
			}
			if len(suggestions) == 0 {
				fmt.Fprintln(d.Prompt.Out(), "No suggestions available")
				return nil
			}
			renderSuggestions(d.Prompt.Out(), suggestions)
			return nil
		}),
	}
}

func (h *Handler) chatCommand() *cobra.Command {
	var docIDs []string
	cmd := &cobra.Command{
		Use:   "chat --doc <id>",
		Short: "Start an interactive conversation about documents",
		Args:  cobra.NoArgs,
		RunE: h.run(func(cmd *cobra.Command, d *Deps, args []string) error {
			ctx := cmd.Context()
			if err := openChat(ctx, d, docIDs); err != nil {
				return err
			}
			return chatLoop(ctx, d)
		}),
	}
	cmd.Flags().StringSliceVar(&docIDs, "doc", nil, "document id to chat about (repeatable)")
	return cmd
}

func chatLoop(ctx context.Context, d *Deps) error {
	out := d.Prompt.Out()
	names := make([]string, 0)
	for _, doc := range d.Coordinator.Selected() {
		names = append(names, doc.Filename)
	}
	fmt.Fprintf(out, "Chatting about %s. Type /help for commands.\n", strings.Join(names, ", "))
	suggestions, err := primeSuggestions(ctx, d)
	if err != nil {
		return err
	}
	renderSuggestions(out, suggestions)

	for {
		line, err := d.Prompt.ReadLine("> ")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		done, err := chatStep(ctx, d, line)
		if err != nil {
			if appErr.IsUnauthenticated(err) {
				return err
			}
			fmt.Fprintf(d.Prompt.ErrOut(), "error: %s\n", Describe(err))
		}
		if done {
			return nil
		}
	}
}

// chatStep handles one input line. It reports whether the loop should end.
func chatStep(ctx context.Context, d *Deps, line string) (bool, error) {
	out := d.Prompt.Out()
	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch command {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(out, chatHelp)
		return false, nil
	case "/docs":
		renderDocuments(out, d.Coordinator.Selected())
		return false, nil
	case "/suggest":
		suggestions, err := primeSuggestions(ctx, d)
		if err != nil {
			return false, err
		}
		if len(suggestions) == 0 {
			fmt.Fprintln(out, "No suggestions available")
		}
		renderSuggestions(out, suggestions)
		return false, nil
	case "/retry":
		before := transcriptLen(d)
		msg, err := d.Coordinator.Retry(ctx)
		return false, showReply(d, before, msg, err)
	case "/compare":
		res, err := d.Coordinator.Compare(ctx, rest)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, res.Comparison)
		return false, nil
	case "/export":
		chat := d.Coordinator.Chat()
		if chat == nil {
			return false, appErr.ErrNoSelection
		}
		if rest == "" {
			rest = "chat-" + time.Now().Format("20060102-150405")
		}
		loc, err := d.Exports.ExportTranscript(ctx, rest, "Conversation", chat.Messages())
		if err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Saved to %s\n", loc)
		return false, nil
	}
	if strings.HasPrefix(command, "/") {
		return false, fmt.Errorf("unknown command %s, type /help", command)
	}
	before := transcriptLen(d)
	msg, err := d.Coordinator.Ask(ctx, line)
	return false, showReply(d, before, msg, err)
}

func transcriptLen(d *Deps) int {
	if chat := d.Coordinator.Chat(); chat != nil {
		return len(chat.Messages())
	}
	return 0
}

// showReply prints the answer, or the error reply the chat recorded after
// the first before messages.
func showReply(d *Deps, before int, msg *model.ChatMessage, err error) error {
	out := d.Prompt.Out()
	if err != nil {
		if chat := d.Coordinator.Chat(); chat != nil {
			msgs := chat.Messages()
			for i := before; i < len(msgs); i++ {
				if msgs[i].IsError {
					renderMessage(out, msgs[i])
				}
			}
		}
		return err
	}
	renderMessage(out, *msg)
	renderSuggestions(out, msg.SuggestedQuestions)
	return nil
}
