package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vibecode-tools/antigravity-bridge-go/pkg/history"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/languageserver"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/quota"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
)

func renderError(message string) string {
	return errorStyle.Render("error: ") + message
}

func renderEndpoint(endpoint languageserver.ServerEndpoint, diag *languageserver.Diagnostics) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Language Server") + "\n\n")
	b.WriteString(fmt.Sprintf("%s %d (%s)\n", labelStyle.Render("Port:"), endpoint.Port, diag.ProtocolUsed))
	b.WriteString(fmt.Sprintf("%s %s…\n", labelStyle.Render("Token:"), diag.TokenPreview))
	b.WriteString(dimStyle.Render(fmt.Sprintf("candidates: %d, probes: %d, scan ports: %d, retries: %d",
		diag.CandidateCount, len(diag.Attempts), diag.PortsFromScan, diag.Retries)))
	return b.String()
}

func renderSnapshot(snapshot *quota.Snapshot) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Antigravity Quota") + "\n\n")

	if info := snapshot.UserInfo; info != nil {
		if info.Email != nil {
			b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Account:"), *info.Email))
		}
		if info.Tier != nil {
			b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Tier:"), *info.Tier))
		}
	}

	b.WriteString(renderCreditBlock("Prompt credits", snapshot.PromptCredits))
	b.WriteString(renderCreditBlock("Flow credits", snapshot.FlowCredits))

	if usage := snapshot.TokenUsage; usage != nil {
		b.WriteString(fmt.Sprintf("%s %.1f%% remaining overall\n",
			labelStyle.Render("Total:"), usage.OverallRemainingPercentage))
	}

	if len(snapshot.Models) > 0 {
		b.WriteString("\n" + labelStyle.Render("Models") + "\n")
		for _, model := range snapshot.Models {
			state := okStyle.Render(fmt.Sprintf("%.1f%%", model.RemainingPercentage))
			if model.IsExhausted {
				state = warnStyle.Render("exhausted, resets in " + model.TimeUntilReset)
			}
			b.WriteString(fmt.Sprintf("  %-24s %s %s\n", model.Label, state,
				dimStyle.Render("("+model.ModelID+")")))
		}
	}

	b.WriteString(dimStyle.Render("as of " + snapshot.Timestamp))
	return b.String()
}

func renderCreditBlock(name string, block *quota.CreditBlock) string {
	if block == nil {
		return ""
	}
	return fmt.Sprintf("%s %d / %d (%.1f%% used)\n",
		labelStyle.Render(name+":"), block.Available, block.Monthly, block.UsedPercentage)
}

func renderHistory(entries []history.Entry) string {
	if len(entries) == 0 {
		return dimStyle.Render("no snapshots recorded yet")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quota History") + "\n\n")
	for _, entry := range entries {
		prompt := "-"
		if entry.PromptAvailable != nil && entry.PromptMonthly != nil {
			prompt = fmt.Sprintf("%d/%d", *entry.PromptAvailable, *entry.PromptMonthly)
		}
		b.WriteString(fmt.Sprintf("%s  prompt %s  %.1f%% remaining  %s\n",
			entry.Timestamp, prompt, entry.OverallRemaining,
			dimStyle.Render(fmt.Sprintf("%d models", entry.ModelCount))))
	}
	return strings.TrimRight(b.String(), "\n")
}
