package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/Iron-Ham/researchdesk/internal/orchestrator/phase"
	"github.com/Iron-Ham/researchdesk/internal/research"
	"github.com/Iron-Ham/researchdesk/internal/tui/styles"
	"github.com/Iron-Ham/researchdesk/internal/util"
)

// maxTopicRunes keeps the header on one line for long questions.
const maxTopicRunes = 48

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch m.Phase() {
	case phase.PhaseInput:
		b.WriteString(m.renderInput())
	case phase.PhaseBriefing:
		b.WriteString(m.renderBriefing())
	case phase.PhaseRunning:
		b.WriteString(m.renderRunning())
	case phase.PhaseCompute:
		b.WriteString(m.renderCompute())
	case phase.PhaseMonitoring:
		b.WriteString(m.renderMonitoring())
	case phase.PhaseDelivery:
		b.WriteString(m.renderDelivery())
	}

	if m.errorMsg != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorMsg.Render("Error: " + m.errorMsg))
	}
	if m.infoMessage != "" {
		b.WriteString("\n")
		b.WriteString(styles.WarningMsg.Render(m.infoMessage))
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderHeader() string {
	title := "Research Desk"
	badge := styles.PhaseBadge.Render(m.Phase().Label())
	if m.session == nil {
		return styles.Header.Render(title + "  " + badge)
	}
	s := m.session
	info := fmt.Sprintf("%s  %s  Round %d  ·  %s  ·  started %s",
		title, badge, s.Round, util.FitRunes(util.SingleLine(s.Topic), maxTopicRunes), humanize.RelTime(s.CreatedAt, m.now(), "ago", "from now"))
	return styles.Header.Render(info)
}

func (m Model) renderInput() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("New research session"))
	b.WriteString("\n")
	b.WriteString(m.topicInput.View())
	b.WriteString("\n\n")
	c := m.constraints
	b.WriteString(fmt.Sprintf("%s %s   %s %s   %s %d/%d",
		styles.Muted.Render("Budget:"), c.Budget,
		styles.Muted.Render("Speed:"), c.Speed,
		styles.Muted.Render("Rigor:"), c.Rigor, research.MaxRigor))
	if c.Exclusions != "" {
		b.WriteString("\n" + styles.Muted.Render("Excluding: ") + c.Exclusions)
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderBriefing() string {
	br := m.session.Briefing
	var b strings.Builder
	b.WriteString(styles.Title.Render("Briefing"))
	b.WriteString("\n")
	b.WriteString(styles.Subtitle.Render(br.OriginalQuestion))
	b.WriteString("\n")
	b.WriteString(styles.Text.Render(br.RewrittenQuestion))
	b.WriteString("\n\n")

	writeList(&b, "Scope", br.Scope)
	if len(br.KeyTerms) > 0 {
		b.WriteString(styles.SectionTitle.Render("Key terms") + "  " + strings.Join(br.KeyTerms, ", ") + "\n\n")
	}

	if len(br.Assumptions) > 0 {
		b.WriteString(styles.SectionTitle.Render("Assumptions") + "\n")
		for _, a := range br.Assumptions {
			box := "[ ]"
			if a.Checked {
				box = "[x]"
			}
			b.WriteString(fmt.Sprintf("  %s %s\n", box, a.Content))
		}
		b.WriteString("\n")
	}

	if len(br.Risks) > 0 {
		b.WriteString(styles.SectionTitle.Render("Risks") + "\n")
		for _, r := range br.Risks {
			b.WriteString(fmt.Sprintf("  %s %s\n", levelTag(r.Level), r.Content))
		}
		b.WriteString("\n")
	}

	if len(br.Roadmap) > 0 {
		b.WriteString(styles.SectionTitle.Render("Roadmap") + "\n")
		for _, ms := range br.Roadmap {
			b.WriteString(fmt.Sprintf("  %d. %s %s\n", ms.Round, ms.Title, styles.Muted.Render("("+ms.EstimatedTime+")")))
		}
	}
	return b.String()
}

func (m Model) renderRunning() string {
	var b strings.Builder
	b.WriteString(m.renderAgents())
	b.WriteString("\n")
	b.WriteString(m.renderFindings())
	b.WriteString(m.renderLogs())
	return b.String()
}

func (m Model) renderCompute() string {
	plan, _ := m.session.ExecutionPlan()
	var b strings.Builder
	b.WriteString(styles.Title.Render("Compute checkpoint"))
	b.WriteString("\n")
	b.WriteString(plan.Description)
	b.WriteString("\n\n")
	writeList(&b, "Expected output", plan.ExpectedOutput)
	b.WriteString(fmt.Sprintf("Cost %s   Risk %s   Estimate %s\n\n",
		levelTag(plan.CostLevel), levelTag(plan.RiskLevel), plan.EstimatedTime))
	b.WriteString(styles.SuccessMsg.Render("Recommended: "+string(plan.Recommendation)) + "  " + plan.RecommendationReason + "\n")
	if plan.DowngradePlan != "" {
		b.WriteString(styles.Muted.Render("Downgrade: ") + plan.DowngradePlan + "\n")
	}
	b.WriteString("\n")
	b.WriteString(m.renderAgents())
	return b.String()
}

func (m Model) renderMonitoring() string {
	status, _ := m.session.ComputeStatus()
	var b strings.Builder
	b.WriteString(styles.Title.Render("Compute run"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s  %s\n", m.spinner.View(), status.Stage, styles.Muted.Render(status.CurrentItem)))
	b.WriteString(m.progress.ViewAs(float64(status.Progress) / 100))
	b.WriteString("\n\n")
	b.WriteString(m.renderAgents())
	b.WriteString("\n")
	b.WriteString(m.renderLogs())
	return b.String()
}

func (m Model) renderDelivery() string {
	d, _ := m.session.Deliverable()
	var b strings.Builder
	b.WriteString(styles.Title.Render(fmt.Sprintf("Round %d deliverable", m.session.Round)))
	b.WriteString("\n")
	b.WriteString(m.progress.ViewAs(float64(d.CompletionRate) / 100))
	b.WriteString("\n\n")

	if status, ok := m.session.ComputeStatus(); ok {
		b.WriteString(styles.Muted.Render(fmt.Sprintf("Compute: %s (%d%%)", status.Stage, status.Progress)))
		b.WriteString("\n\n")
	}

	if draft := firstLines(d.PaperDraft, 6); draft != "" {
		b.WriteString(styles.SectionTitle.Render("Draft") + "\n")
		b.WriteString(draft + "\n\n")
	}

	if len(d.Conclusions) > 0 {
		b.WriteString(styles.SectionTitle.Render("Conclusions") + "\n")
		for _, c := range d.Conclusions {
			mark := styles.Muted.Render("?")
			if c.Verified {
				mark = styles.Secondary.Render("✓")
			}
			b.WriteString(fmt.Sprintf("  %s %s %s\n", mark, c.Content,
				styles.Muted.Render(fmt.Sprintf("(%s confidence, %d sources)", c.Confidence, c.EvidenceCount))))
		}
		b.WriteString("\n")
	}
	writeList(&b, "Pending", d.PendingItems)

	if len(d.NextSteps) > 0 {
		b.WriteString(styles.SectionTitle.Render("Next steps") + "\n")
		for i, opt := range d.NextSteps {
			line := fmt.Sprintf("[%d] %s  %s", i+1, opt.Title, opt.EstimatedTime)
			if opt.Recommended {
				b.WriteString("  " + styles.OptionRecommended.Render(line+"  recommended") + "\n")
			} else {
				b.WriteString("  " + styles.Option.Render(line) + "\n")
			}
		}
	}
	return b.String()
}

func (m Model) renderAgents() string {
	rows := make([]string, 0, len(m.session.AgentStatuses))
	for _, a := range m.session.AgentStatuses {
		state := string(a.State)
		icon := lipgloss.NewStyle().Foreground(styles.StateColor(state)).Render(styles.StateIcon(state))
		if a.State == research.AgentWorking {
			icon = m.spinner.View()
		}
		row := icon + " " + styles.AgentName.Render(string(a.Role)) + " " + a.Message
		if a.Progress != nil {
			row += styles.Muted.Render(fmt.Sprintf(" %d%%", *a.Progress))
		}
		rows = append(rows, row)
	}
	return styles.AgentPanel.Render(strings.Join(rows, "\n"))
}

func (m Model) renderFindings() string {
	if len(m.session.Findings) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(styles.SectionTitle.Render("Findings") + "\n")
	for _, f := range m.session.Findings {
		mark := styles.Secondary.Render("●")
		if f.Kind == research.FindingPending {
			mark = styles.Warning.Render("○")
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", mark, f.Content))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderLogs() string {
	logs := m.session.Logs
	if len(logs) > m.maxLogLines {
		logs = logs[len(logs)-m.maxLogLines:]
	}
	var b strings.Builder
	b.WriteString(styles.SectionTitle.Render("Activity") + "\n")
	for _, l := range logs {
		ts := styles.Muted.Render(l.Time.Format("15:04:05"))
		line := fmt.Sprintf("  %s %s %s", ts,
			styles.AgentName.Render(string(l.Role)), styles.LogLevel(string(l.Level)).Render(l.Message))
		b.WriteString(util.Fit(line, m.width) + "\n")
	}
	return b.String()
}

func (m Model) renderHelp() string {
	var keys [][2]string
	switch m.Phase() {
	case phase.PhaseInput:
		keys = [][2]string{{"enter", "start"}, {"tab", "budget"}, {"shift+tab", "speed"}, {"↑/↓", "rigor"}, {"esc", "quit"}}
	case phase.PhaseBriefing:
		keys = [][2]string{{"c", "continue"}, {"a", "adjust"}, {"x", "discard"}, {"q", "quit"}}
	case phase.PhaseRunning, phase.PhaseMonitoring:
		keys = [][2]string{{"s", "stop and deliver"}, {"x", "discard"}, {"q", "quit"}}
	case phase.PhaseCompute:
		keys = [][2]string{{"e", "execute"}, {"d", "downgrade"}, {"k", "skip"}, {"s", "stop"}, {"q", "quit"}}
	case phase.PhaseDelivery:
		keys = [][2]string{{"1-9", "next round"}, {"n", "new session"}, {"q", "quit"}}
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, styles.HelpKey.Render(k[0])+" "+k[1])
	}
	help := strings.Join(parts, "  ")
	if m.session != nil {
		help = styles.Muted.Render(util.FitRunes(m.session.ID, 13)) + "  " + help
	}
	if m.pending != "" {
		help = m.spinner.View() + " " + m.pending + "…  " + help
	}
	return styles.HelpBar.Render(help)
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(styles.SectionTitle.Render(title) + "\n")
	for _, it := range items {
		b.WriteString("  • " + it + "\n")
	}
	b.WriteString("\n")
}

func levelTag(l research.Level) string {
	switch l {
	case research.LevelHigh:
		return styles.Error.Render(string(l))
	case research.LevelMedium:
		return styles.Warning.Render(string(l))
	default:
		return styles.Secondary.Render(string(l))
	}
}

func firstLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = append(lines[:n], "…")
	}
	return strings.Join(lines, "\n")
}
