package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"fakeso-chat/internal/chatclient"
	"fakeso-chat/internal/domain"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// participantAdder is the one REST call the view does not cover
type participantAdder interface {
	AddParticipant(ctx context.Context, chatID, participant string) (*domain.PopulatedChat, error)
}

// shell maps input lines onto view actions and renders the result
type shell struct {
	view  *chatclient.DirectMessageView
	api   participantAdder
	mu    sync.Mutex
	out   io.Writer
	title color.Style
	me    color.Style
	other color.Style
}

func newShell(view *chatclient.DirectMessageView, api participantAdder, out io.Writer) *shell {
	return &shell{
		view:  view,
		api:   api,
		out:   out,
		title: color.New(color.FgCyan, color.OpBold),
		me:    color.New(color.FgGreen),
		other: color.New(color.FgMagenta),
	}
}

type command struct {
	name string
	arg  string
}

// parseCommand splits "/open 2" into {open, 2}. Lines without a leading
// slash are messages and yield an empty name.
func parseCommand(line string) command {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{arg: line}
	}
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	return command{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}
}

// handle runs one input line and reports whether the shell should continue
func (s *shell) handle(ctx context.Context, line string) bool {
	cmd := parseCommand(line)
	switch cmd.name {
	case "":
		if cmd.arg == "" {
			return true
		}
		s.view.SetDraft(cmd.arg)
		if err := s.view.Send(ctx); err != nil {
			s.errorf("not sent: %v", err)
			return true
		}
		s.renderSelected()
	case "chats":
		s.renderChats()
	case "open":
		s.open(ctx, cmd.arg)
	case "new":
		s.create(ctx, cmd.arg)
	case "add":
		s.addParticipant(ctx, cmd.arg)
	case "help":
		s.help()
	case "quit", "exit":
		return false
	default:
		s.errorf("unknown command /%s, try /help", cmd.name)
	}
	return true
}

func (s *shell) open(ctx context.Context, ref string) {
	chats := s.view.Chats()
	chatID := ref
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(chats) {
			s.errorf("no chat #%d, see /chats", n)
			return
		}
		chatID = chats[n-1].ID
	}
	if err := s.view.SelectChat(ctx, chatID); err != nil {
		s.errorf("could not open chat: %v", err)
		return
	}
	s.renderSelected()
}

func (s *shell) create(ctx context.Context, username string) {
	if username == "" {
		s.errorf("usage: /new <username>")
		return
	}
	if !s.view.PanelOpen() {
		s.view.ToggleCreatePanel()
	}
	s.view.SelectUser(username)
	if err := s.view.CreateChat(ctx); err != nil {
		s.errorf("could not create chat: %v", err)
		return
	}
	s.renderSelected()
}

func (s *shell) addParticipant(ctx context.Context, username string) {
	selected := s.view.Selected()
	if selected == nil {
		s.errorf("open a chat first")
		return
	}
	if username == "" {
		s.errorf("usage: /add <username>")
		return
	}
	if _, err := s.api.AddParticipant(ctx, selected.ID, username); err != nil {
		s.errorf("could not add %s: %v", username, err)
		return
	}
	// re-select to pick up the new participant list
	if err := s.view.SelectChat(ctx, selected.ID); err != nil {
		s.errorf("could not refresh chat: %v", err)
		return
	}
	s.renderSelected()
}

// notify prints realtime updates that concern the viewer
func (s *shell) notify(update domain.ChatUpdate) {
	s.view.ApplyUpdate(update)
	selected := s.view.Selected()

	switch {
	case update.Type == domain.ChatUpdateNewMessage && selected != nil && selected.ID == update.Chat.ID:
		if n := len(update.Chat.Messages); n > 0 {
			s.printMessage(update.Chat.Messages[n-1])
		}
	case update.Type == domain.ChatUpdateCreated && update.Chat.HasParticipant(s.view.Me()):
		s.printf("%s\n", s.title.Sprintf("new chat with %s", strings.Join(others(update.Chat, s.view.Me()), ", ")))
	}
}

func (s *shell) renderChats() {
	chats := s.view.Chats()
	if len(chats) == 0 {
		s.printf("no chats yet, start one with /new <username>\n")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	table := tablewriter.NewWriter(s.out)
	table.SetHeader([]string{"#", "With", "Messages", "Last"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for i, chat := range chats {
		last := ""
		if n := len(chat.Messages); n > 0 {
			last = truncate(chat.Messages[n-1].Msg, 40)
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			strings.Join(others(chat, s.view.Me()), ", "),
			strconv.Itoa(len(chat.Messages)),
			last,
		})
	}
	table.Render()
}

func (s *shell) renderSelected() {
	chat := s.view.Selected()
	if chat == nil {
		return
	}
	s.printf("%s\n", s.title.Sprintf("Chat Participants: %s", strings.Join(chat.Participants, ", ")))
	for _, msg := range chat.Messages {
		s.printMessage(msg)
	}
}

func (s *shell) printMessage(msg *domain.PopulatedMessage) {
	style := s.other
	if msg.MsgFrom == s.view.Me() {
		style = s.me
	}
	s.printf("%s %s %s\n",
		msg.MsgDateTime.Local().Format("15:04"),
		style.Sprintf("%s:", msg.MsgFrom),
		msg.Msg)
}

func (s *shell) banner() {
	s.printf("%s\n", s.title.Sprintf("Direct messages for %s", s.view.Me()))
	s.help()
}

func (s *shell) help() {
	s.printf("  /chats            list your chats\n" +
		"  /open <#|id>      open a chat\n" +
		"  /new <username>   start a chat\n" +
		"  /add <username>   add someone to the open chat\n" +
		"  /quit             leave\n" +
		"  anything else     send it to the open chat\n")
}

func (s *shell) errorf(format string, args ...any) {
	s.printf("%s\n", color.Red.Sprintf(format, args...))
}

func (s *shell) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

// others lists the participants besides me, or me alone for a self chat
func others(chat *domain.PopulatedChat, me string) []string {
	if out := lo.Without(chat.Participants, me); len(out) > 0 {
		return out
	}
	return []string{me}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
