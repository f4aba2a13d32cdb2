// roomterm is the in-room terminal as a standalone TUI. It drives a running
// roomd over HTTP and, when the bus bridge is enabled, streams live engine
// events next to the prompt.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/netroomlab/netroom/pkg/bus"
	"github.com/netroomlab/netroom/pkg/firewall"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFAA")).
			MarginTop(1).
			MarginLeft(2)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FFFF")).
			MarginLeft(2)

	outputStyle = lipgloss.NewStyle().
			MarginLeft(2)

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00"))

	allowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	denyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginLeft(2)
)

const maxLines = 200

const helpText = `Commands:
  help                          show this help
  ls                            list available assets
  rules                         show the firewall rule list
  fw <src> <dst> <proto> <port> evaluate traffic, e.g. fw WAN LAN TCP 22
  run <phase>                   run a phase
  seq <phase> [phase...]        run phases back to back
  quit                          exit`

type eventMsg bus.BridgeEvent

type resultMsg struct {
	lines []string
	err   error
}

type model struct {
	client *client
	events <-chan bus.BridgeEvent

	input textinput.Model
	lines []string
	busy  bool
}

func initialModel(c *client, events <-chan bus.BridgeEvent) model {
	ti := textinput.New()
	ti.Placeholder = "type help"
	ti.CharLimit = 120
	ti.Width = 60
	ti.Focus()

	return model{
		client: c,
		events: events,
		input:  ti,
		lines:  []string{"netroom terminal. Type help to get started."},
	}
}

func waitForEvent(events <-chan bus.BridgeEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.events))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			if line == "quit" || line == "exit" {
				return m, tea.Quit
			}
			m.lines = m.append("> " + line)
			m.busy = true
			return m, m.client.run(line)
		}

	case resultMsg:
		m.busy = false
		if msg.err != nil {
			m.lines = m.append(errorStyle.Render(msg.err.Error()))
		}
		for _, l := range msg.lines {
			m.lines = m.append(l)
		}
		return m, nil

	case eventMsg:
		m.lines = m.append(eventStyle.Render(renderEvent(bus.BridgeEvent(msg))))
		return m, waitForEvent(m.events)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) append(line string) []string {
	lines := append(m.lines, line)
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("netroom terminal"))
	b.WriteString("\n\n")

	visible := m.lines
	if len(visible) > 20 {
		visible = visible[len(visible)-20:]
	}
	for _, l := range visible {
		b.WriteString(outputStyle.Render(l))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(promptStyle.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: run · ctrl+c: quit"))
	return b.String()
}

// renderEvent formats a bridge event for the scrollback.
func renderEvent(ev bus.BridgeEvent) string {
	switch ev.Topic {
	case bus.TopicHUDText:
		var hud bus.HUDText
		if json.Unmarshal(ev.Payload, &hud) == nil {
			return "[hud] " + hud.Text
		}
	case bus.TopicPhaseStarted, bus.TopicPhaseEnded:
		var ph bus.PhaseLifecycle
		if json.Unmarshal(ev.Payload, &ph) == nil {
			verb := "started"
			if ev.Topic == bus.TopicPhaseEnded {
				verb = "ended"
			}
			if ph.Error != "" {
				return fmt.Sprintf("[phase] %s %s: %s", ph.Phase, verb, ph.Error)
			}
			return fmt.Sprintf("[phase] %s %s", ph.Phase, verb)
		}
	case bus.TopicFlowSegment:
		var seg bus.SegmentEvent
		if json.Unmarshal(ev.Payload, &seg) == nil {
			return fmt.Sprintf("[flow] %s: %s -> %s", seg.Flow, seg.From, seg.To)
		}
	}
	return fmt.Sprintf("[%s] %s", ev.Topic, string(ev.Payload))
}

// client wraps the roomd HTTP API.
type client struct {
	baseURL string
	http    *http.Client
}

func (c *client) run(line string) tea.Cmd {
	return func() tea.Msg {
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "help":
			return resultMsg{lines: strings.Split(helpText, "\n")}
		case "ls":
			return c.listAssets()
		case "rules":
			return c.listRules()
		case "fw":
			return c.evaluate(args)
		case "run":
			if len(args) != 1 {
				return resultMsg{err: fmt.Errorf("usage: run <phase>")}
			}
			return c.runPhase(args[0])
		case "seq":
			if len(args) == 0 {
				return resultMsg{err: fmt.Errorf("usage: seq <phase> [phase...]")}
			}
			return c.runSequence(args)
		default:
			return resultMsg{err: fmt.Errorf("unknown command %q, try help", cmd)}
		}
	}
}

func (c *client) listAssets() resultMsg {
	var resp struct {
		Items []struct {
			Name     string `json:"name"`
			Category string `json:"category"`
			Emoji    string `json:"emoji"`
		} `json:"items"`
	}
	if err := c.get("/inventory", &resp); err != nil {
		return resultMsg{err: err}
	}

	lines := make([]string, 0, len(resp.Items)+1)
	lines = append(lines, fmt.Sprintf("%d assets:", len(resp.Items)))
	for _, it := range resp.Items {
		lines = append(lines, fmt.Sprintf("  %s %-24s %s", it.Emoji, it.Name, it.Category))
	}
	return resultMsg{lines: lines}
}

func (c *client) listRules() resultMsg {
	var resp struct {
		Rules []firewall.Rule `json:"rules"`
	}
	if err := c.get("/firewall/rules", &resp); err != nil {
		return resultMsg{err: err}
	}

	lines := make([]string, 0, len(resp.Rules)+1)
	lines = append(lines, fmt.Sprintf("%d rules (first match wins, default deny):", len(resp.Rules)))
	for i, r := range resp.Rules {
		action := allowStyle.Render(string(r.Action))
		if r.Action == firewall.ActionDeny {
			action = denyStyle.Render(string(r.Action))
		}
		lines = append(lines, fmt.Sprintf("  %2d. %-18s %s->%s %s/%d %s",
			i+1, r.ID, r.SrcZone, r.DstZone, r.Protocol, r.Port, action))
	}
	return resultMsg{lines: lines}
}

func (c *client) evaluate(args []string) resultMsg {
	if len(args) != 4 {
		return resultMsg{err: fmt.Errorf("usage: fw <src> <dst> <proto> <port>")}
	}
	port, err := strconv.Atoi(args[3])
	if err != nil {
		return resultMsg{err: fmt.Errorf("invalid port %q", args[3])}
	}

	traffic := firewall.Traffic{
		SrcZone:  firewall.Zone(strings.ToUpper(args[0])),
		DstZone:  firewall.Zone(strings.ToUpper(args[1])),
		Protocol: firewall.Protocol(strings.ToUpper(args[2])),
		Port:     port,
	}

	var resp struct {
		Decision firewall.Decision `json:"decision"`
	}
	if err := c.post("/firewall/evaluate", traffic, &resp); err != nil {
		return resultMsg{err: err}
	}

	verdict := allowStyle.Render("ALLOW")
	if resp.Decision.Action == firewall.ActionDeny {
		verdict = denyStyle.Render("DENY")
	}
	by := "default policy"
	if resp.Decision.MatchedIndex >= 0 {
		by = fmt.Sprintf("rule %d (%s)", resp.Decision.MatchedIndex+1, resp.Decision.MatchedRuleID)
	}
	return resultMsg{lines: []string{fmt.Sprintf("%s by %s", verdict, by)}}
}

func (c *client) runPhase(id string) resultMsg {
	var resp struct {
		OK bool `json:"ok"`
	}
	if err := c.post("/phases/"+id+"/run", nil, &resp); err != nil {
		return resultMsg{err: err}
	}
	return resultMsg{lines: []string{fmt.Sprintf("phase %s finished", id)}}
}

func (c *client) runSequence(ids []string) resultMsg {
	var resp struct {
		OK bool `json:"ok"`
	}
	body := map[string]any{"phases": ids}
	if err := c.post("/phases/run-sequence", body, &resp); err != nil {
		return resultMsg{err: err}
	}
	return resultMsg{lines: []string{fmt.Sprintf("sequence finished (%d phases)", len(ids))}}
}

func (c *client) get(path string, out any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func (c *client) post(path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	resp, err := c.http.Post(c.baseURL+path, "application/json", &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("server: %s", errResp.Error)
		}
		return fmt.Errorf("server: %s", resp.Status)
	}
	return json.Unmarshal(raw, out)
}

func main() {
	apiURL := flag.String("api", "http://127.0.0.1:8080", "roomd API base URL")
	busAddr := flag.String("bus", "", "bus bridge address, e.g. tcp://127.0.0.1:7780 (optional)")
	flag.Parse()

	c := &client{
		baseURL: strings.TrimSuffix(*apiURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}

	var events chan bus.BridgeEvent
	if *busAddr != "" {
		sub, err := bus.NewBridgeClient(*busAddr,
			bus.TopicHUDText, bus.TopicPhaseStarted, bus.TopicPhaseEnded, bus.TopicFlowSegment)
		if err != nil {
			fmt.Fprintf(os.Stderr, "roomterm: %v\n", err)
			os.Exit(1)
		}
		defer sub.Close()

		events = make(chan bus.BridgeEvent, 64)
		go func() {
			defer close(events)
			for {
				ev, err := sub.Recv()
				if err != nil {
					return
				}
				events <- ev
			}
		}()
	}

	p := tea.NewProgram(initialModel(c, events))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "roomterm: %v\n", err)
		os.Exit(1)
	}
}
