package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/comigor/halilintar-go/internal/chatapi"
	"github.com/comigor/halilintar-go/internal/conversation"
	"github.com/comigor/halilintar-go/internal/llm"
	"github.com/comigor/halilintar-go/internal/logger"
	"github.com/comigor/halilintar-go/internal/render"
	"github.com/comigor/halilintar-go/internal/session"
	"github.com/comigor/halilintar-go/internal/storage"
	"github.com/comigor/halilintar-go/internal/theme"
)

const chatHelp = `Commands:
  /new            start a new conversation
  /file <path>    attach a file to the next message
  /copy <n>       copy code block n of the last reply
  /provider <p>   switch provider (gemini, deepseek)
  /theme          toggle light/dark
  /quit           exit`

type chatOptions struct {
	provider string
	traits   []string
	resume   bool
	width    int
}

func chatCmd() *cobra.Command {
	var opts chatOptions
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.SetOutput(os.Stderr)
			if opts.provider == "" {
				opts.provider = cfg.Client.DefaultProvider
			}
			return chat(cmd.Context(), os.Stdin, cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.provider, "provider", "p", "", "provider tag (gemini or deepseek)")
	cmd.Flags().StringSliceVarP(&opts.traits, "trait", "t", nil, "personality trait ids")
	cmd.Flags().BoolVar(&opts.resume, "resume", false, "continue the most recent conversation")
	cmd.Flags().IntVar(&opts.width, "width", 80, "word wrap width")
	return cmd
}

type repl struct {
	out      io.Writer
	opts     chatOptions
	store    *conversation.Store
	ctrl     *session.Controller
	renderer *render.Renderer
	themes   theme.Backend

	convID   string
	attached *chatapi.Attachment
	last     render.View
}

func chat(ctx context.Context, in io.Reader, out io.Writer, opts chatOptions) error {
	db := storage.NewSQLite(cfg.Client.StoragePath)
	defer db.Close()

	store := conversation.NewStore(db)
	store.Load()

	r := &repl{
		out:   out,
		opts:  opts,
		store: store,
		ctrl:  session.NewController(store, chatapi.New(cfg.Endpoint(), nil)),
		renderer: render.New(render.Options{
			Theme:        theme.Load(db),
			StyleLight:   cfg.Render.StyleLight,
			StyleDark:    cfg.Render.StyleDark,
			CopyFeedback: cfg.Render.CopyFeedback,
			Clipboard:    render.ClipboardFunc(clipboard.WriteAll),
		}),
		themes: db,
	}

	if cur, ok := store.Current(); opts.resume && ok {
		r.convID = cur.ID
		fmt.Fprintf(out, "Resuming %q\n", cur.Title)
	} else {
		r.convID = store.Create().ID
	}
	fmt.Fprintf(out, "Halilintar AI (%s). Type /help for commands.\n", llm.Label(opts.provider))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		if quit := r.handle(ctx, scanner.Text()); quit {
			break
		}
	}
	return scanner.Err()
}

func (r *repl) handle(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(r.out, chatHelp)
	case "/new":
		r.convID = r.store.Create().ID
		r.last = render.View{}
		fmt.Fprintln(r.out, "New conversation.")
	case "/file":
		r.attach(arg)
	case "/copy":
		r.copy(arg)
	case "/provider":
		if !slices.Contains(llm.Tags, arg) {
			fmt.Fprintf(r.out, "%v: %q\n", llm.ErrUnknownProvider, arg)
			break
		}
		r.opts.provider = arg
		fmt.Fprintf(r.out, "Using %s.\n", llm.Label(arg))
	case "/theme":
		next := r.renderer.Theme().Toggle()
		r.renderer.SetTheme(next)
		if err := theme.Save(r.themes, next); err != nil {
			logger.L.Error("theme save failed", "error", err)
		}
		fmt.Fprintf(r.out, "Theme: %s\n", next)
	default:
		r.send(ctx, line)
	}
	return false
}

func (r *repl) attach(path string) {
	if path == "" {
		fmt.Fprintln(r.out, "usage: /file <path>")
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(r.out, "cannot read file:", err)
		return
	}
	r.attached = &chatapi.Attachment{Name: filepath.Base(path), Content: data}
	fmt.Fprintf(r.out, "Attached %s (%d bytes).\n", r.attached.Name, len(data))
}

func (r *repl) copy(arg string) {
	blocks := render.CodeBlocks(r.last)
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(blocks) {
		fmt.Fprintf(r.out, "usage: /copy <1..%d>\n", len(blocks))
		return
	}
	a := blocks[n-1].Copy
	<-a.Copy()
	switch a.State() {
	case render.CopyCopied:
		fmt.Fprintln(r.out, "Copied!")
	default:
		fmt.Fprintln(r.out, "Copy failed.")
	}
}

func (r *repl) send(ctx context.Context, text string) {
	conv, err := r.ctrl.Send(ctx, session.Turn{
		ConversationID: r.convID,
		Text:           text,
		Provider:       r.opts.provider,
		Personalities:  r.opts.traits,
		Attachment:     r.attached,
	})
	if err != nil {
		if !errors.Is(err, session.ErrEmptyInput) {
			fmt.Fprintln(r.out, err)
		}
		return
	}
	r.attached = nil
	if len(conv.Messages) == 0 {
		return
	}

	reply := conv.Messages[len(conv.Messages)-1]
	r.last = r.renderer.Render(reply)
	out, err := r.renderer.Terminal(r.last, r.opts.width)
	if err != nil {
		fmt.Fprintln(r.out, reply.Content)
		return
	}
	fmt.Fprintln(r.out, out)
}
