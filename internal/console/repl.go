package console

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"golang.org/x/term"

	radarerrors "github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/protocol"
	"github.com/radarmon/radar/internal/registry"
	"github.com/radarmon/radar/internal/ui"
)

// Prompt is shown before every command.
const Prompt = "> "

// Querier is satisfied by *Client.
type Querier interface {
	Query(ctx context.Context, action string) (protocol.QueryReply, error)
}

// Render writes a reply: the message when there is one, a table for a
// list() snapshot, otherwise the data indented.
func Render(w io.Writer, r protocol.QueryReply) {
	if r.Message != "" {
		fmt.Fprintln(w, r.Message)
		return
	}
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return
	}
	var views []registry.MonitorView
	if err := json.Unmarshal(r.Data, &views); err == nil && isSnapshot(views) {
		fmt.Fprintln(w, snapshotTable(views))
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, r.Data, "", "  "); err != nil {
		fmt.Fprintln(w, string(r.Data))
		return
	}
	fmt.Fprintln(w, buf.String())
}

func isSnapshot(views []registry.MonitorView) bool {
	if len(views) == 0 {
		return false
	}
	for _, v := range views {
		if v.Name == "" {
			return false
		}
	}
	return true
}

// snapshotTable lays out one row per live check, and one row per monitor
// without clients.
func snapshotTable(views []registry.MonitorView) string {
	columns := []ui.TableColumn{
		{Title: "Monitor", Width: 16},
		{Title: "Client", Width: 22},
		{Title: "Check", Width: 24},
		{Title: "Status", Width: 9},
		{Title: "Enabled", Width: 8},
	}
	var rows []table.Row
	for _, m := range views {
		monitor := fmt.Sprintf("%s [%d]", m.Name, m.ID)
		if !m.Enabled {
			monitor += " (off)"
		}
		if len(m.Clients) == 0 {
			rows = append(rows, table.Row{monitor, "-", "-", "-", "-"})
			continue
		}
		for _, c := range m.Clients {
			client := fmt.Sprintf("%s:%d", c.Address, c.Port)
			for _, ch := range c.Checks {
				rows = append(rows, table.Row{
					monitor,
					client,
					fmt.Sprintf("%s [%d]", ch.Name, ch.ID),
					ch.CurrentStatus.String(),
					fmt.Sprintf("%t", ch.Enabled),
				})
			}
		}
	}
	return ui.NewTable(columns, rows).View()
}

type lineReader interface {
	ReadLine() (string, error)
}

type scannerReader struct {
	s   *bufio.Scanner
	out io.Writer
}

func (r scannerReader) ReadLine() (string, error) {
	fmt.Fprint(r.out, Prompt)
	if !r.s.Scan() {
		if err := r.s.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.s.Text(), nil
}

// REPL reads commands from in until quit(), EOF or ctx is done. When in is
// a terminal it is switched to raw mode for line editing and history.
func REPL(ctx context.Context, q Querier, in io.Reader, out io.Writer) error {
	var lr lineReader = scannerReader{s: bufio.NewScanner(in), out: out}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		state, err := term.MakeRaw(int(f.Fd()))
		if err == nil {
			defer term.Restore(int(f.Fd()), state)
			t := term.NewTerminal(struct {
				io.Reader
				io.Writer
			}{in, out}, Prompt)
			lr = t
			out = t
		}
	}

	for ctx.Err() == nil {
		line, err := lr.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		cmd := strings.TrimSpace(line)
		switch cmd {
		case "":
			continue
		case "quit()", "quit", "exit":
			return nil
		}

		reply, err := q.Query(ctx, cmd)
		if err != nil {
			fmt.Fprintln(out, radarerrors.Brief(err))
			if radarerrors.IsCode(err, radarerrors.ErrConsole) && strings.Contains(err.Error(), "disconnect") {
				return err
			}
			continue
		}
		Render(out, reply)
	}
	return ctx.Err()
}
