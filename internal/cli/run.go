package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"go.uber.org/fx"

	"github.com/mycampus-app/quickchat/internal/chat"
	"github.com/mycampus-app/quickchat/internal/models"
)

// Run hosts the interactive chat loop as the app's main lifecycle component.
func Run(lc fx.Lifecycle, sd fx.Shutdowner, sess *chat.Session) {
	r := &repl{
		sess: sess,
		sd:   sd,
		in:   os.Stdin,
		out:  os.Stdout,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go r.loop(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sess.Close()
			return nil
		},
	})
}

type repl struct {
	sess *chat.Session
	sd   fx.Shutdowner
	in   io.Reader
	out  io.Writer
}

func (r *repl) loop(ctx context.Context) {
	defer func() { _ = r.sd.Shutdown() }()

	rooms, err := r.sess.Rooms(ctx)
	if err != nil {
		log.Errorw(ctx, "cannot list rooms", "error", err)
		return
	}
	r.printRooms(rooms)
	if len(rooms) > 0 {
		// Land the user in the first room, the same default the portal UI uses.
		r.sess.SelectRoom(ctx, rooms[0].ID)
		fmt.Fprintf(r.out, "joined %q\n", rooms[0].Name)
	}
	fmt.Fprintln(r.out, `type a message, or /help for commands`)

	sc := bufio.NewScanner(r.in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return
		}
		r.dispatch(ctx, line)
	}
}

func (r *repl) dispatch(ctx context.Context, line string) {
	if !strings.HasPrefix(line, "/") {
		r.sess.MarkTyping()
		if err := r.sess.Send(ctx, line); err != nil {
			fmt.Fprintf(r.out, "send: %v\n", err)
		}
		return
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "/help":
		fmt.Fprint(r.out, helpText)
	case "/rooms":
		rooms, err := r.sess.Rooms(ctx)
		if err != nil {
			fmt.Fprintf(r.out, "rooms: %v\n", err)
			return
		}
		r.printRooms(rooms)
	case "/join":
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			fmt.Fprintln(r.out, "usage: /join <room-id>")
			return
		}
		r.sess.SelectRoom(ctx, id)
	case "/history":
		for _, m := range r.sess.Messages() {
			r.printMessage(m)
		}
	case "/typing":
		peers := r.sess.TypingPeers()
		if len(peers) == 0 {
			fmt.Fprintln(r.out, "nobody is typing")
			return
		}
		fmt.Fprintf(r.out, "typing: %s\n", strings.Join(peers, ", "))
	case "/edit":
		idStr, text, _ := strings.Cut(rest, " ")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || strings.TrimSpace(text) == "" {
			fmt.Fprintln(r.out, "usage: /edit <message-id> <new text>")
			return
		}
		r.sess.Edit(ctx, id, text)
	case "/del":
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			fmt.Fprintln(r.out, "usage: /del <message-id>")
			return
		}
		r.sess.DeleteForAll(ctx, id)
	case "/hide":
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			fmt.Fprintln(r.out, "usage: /hide <message-id>")
			return
		}
		r.sess.Hide(ctx, id)
	case "/clear":
		r.sess.ClearRoom(ctx)
	case "/search":
		if rest == "" {
			fmt.Fprintln(r.out, "usage: /search <query>")
			return
		}
		msgs, err := r.sess.Search(ctx, rest, 20)
		if err != nil {
			fmt.Fprintf(r.out, "search: %v\n", err)
			return
		}
		for _, m := range msgs {
			r.printMessage(m)
		}
	case "/stage":
		if rest == "" {
			fmt.Fprintln(r.out, "usage: /stage <path>")
			return
		}
		payload, err := os.ReadFile(rest)
		if err != nil {
			fmt.Fprintf(r.out, "stage: %v\n", err)
			return
		}
		att, err := r.sess.Staging().Stage(filepath.Base(rest), "", payload)
		if err != nil {
			fmt.Fprintf(r.out, "stage: %v\n", err)
			return
		}
		fmt.Fprintf(r.out, "staged %s (%s, %d bytes) ref=%s\n", att.Name, att.Type, att.Size, att.PreviewRef)
	case "/unstage":
		if rest == "" {
			fmt.Fprintln(r.out, "usage: /unstage <ref>")
			return
		}
		r.sess.Staging().Unstage(rest)
	case "/staged":
		for _, att := range r.sess.Staging().Staged() {
			fmt.Fprintf(r.out, "%s  %s (%s, %d bytes)\n", att.PreviewRef, att.Name, att.Type, att.Size)
		}
	default:
		fmt.Fprintf(r.out, "unknown command %q, try /help\n", cmd)
	}
}

func (r *repl) printRooms(rooms []models.Room) {
	for _, room := range rooms {
		fmt.Fprintf(r.out, "[%d] %s (%s)\n", room.ID, room.Name, room.Kind)
	}
}

func (r *repl) printMessage(m models.Message) {
	id := "·"
	if m.Confirmed() {
		id = strconv.FormatInt(m.ID, 10)
	}
	fmt.Fprintf(r.out, "#%s %s <%s> %s", id, m.Timestamp.Local().Format("15:04"), m.SenderName, m.Content)
	for _, att := range m.Attachments {
		fmt.Fprintf(r.out, " [%s %s]", att.Type, att.Name)
	}
	fmt.Fprintln(r.out)
}

const helpText = `/rooms              list chat rooms
/join <id>          switch to a room
/history            print the visible messages
/typing             show who is typing
/edit <id> <text>   edit one of your messages
/del <id>           delete a message for everyone
/hide <id>          hide a message for yourself
/clear              clear the room for yourself
/search <query>     search the room's history
/stage <path>       attach a file to the next send
/unstage <ref>      drop a staged attachment
/staged             list staged attachments
/quit               exit
`
