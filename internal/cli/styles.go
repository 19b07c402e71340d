// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fairbill/fairbill/internal/model"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#4ECDC4") // Teal
	// VerifiedColor marks charges confirmed against a tariff source.
	VerifiedColor = lipgloss.Color("#4ECDC4") // Teal
	// WrongColor marks likely overcharges or undercharges.
	WrongColor = lipgloss.Color("#FF6B6B") // Red
	// UnverifiedColor marks charges we could not check either way.
	UnverifiedColor = lipgloss.Color("#FFE66D") // Yellow
	// InfoColor indicates informational messages.
	InfoColor = lipgloss.Color("#95E1D3") // Light teal
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#666666") // Gray

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// SubtitleStyle is used for secondary headings.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			MarginBottom(1)

	// VerifiedStyle formats verified findings.
	VerifiedStyle = lipgloss.NewStyle().
			Foreground(VerifiedColor)

	// WrongStyle formats likely-wrong findings.
	WrongStyle = lipgloss.NewStyle().
			Foreground(WrongColor).
			Bold(true)

	// UnverifiedStyle formats cannot-verify findings.
	UnverifiedStyle = lipgloss.NewStyle().
			Foreground(UnverifiedColor)

	// InfoStyle formats informational messages.
	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	// SubtleStyle formats less prominent text such as citations.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	// BoxStyle is used for bordered content boxes.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)

	// PromptStyle is used for user prompts.
	PromptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)
)

// Icons.
const (
	VerifiedIcon   = "✓"
	WrongIcon      = "✗"
	UnverifiedIcon = "?"
	InfoIcon       = "ℹ"
	BillIcon       = "🧾"
)

// StatusStyle returns the style for a finding verdict.
func StatusStyle(status model.FindingStatus) lipgloss.Style {
	switch status {
	case model.StatusVerified:
		return VerifiedStyle
	case model.StatusLikelyWrong:
		return WrongStyle
	default:
		return UnverifiedStyle
	}
}

// StatusIcon returns the icon for a finding verdict.
func StatusIcon(status model.FindingStatus) string {
	switch status {
	case model.StatusVerified:
		return VerifiedIcon
	case model.StatusLikelyWrong:
		return WrongIcon
	default:
		return UnverifiedIcon
	}
}

// FormatStatus renders a verdict with its icon, styled.
func FormatStatus(status model.FindingStatus) string {
	return StatusStyle(status).Render(StatusIcon(status) + " " + string(status))
}

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return VerifiedStyle.Render(VerifiedIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return WrongStyle.Render(WrongIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return UnverifiedStyle.Render("⚠ " + message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle formats a report title.
func FormatTitle(title string) string {
	return TitleStyle.Render(BillIcon + " " + title)
}

// FormatPrompt formats a prompt message.
func FormatPrompt(prompt string) string {
	return PromptStyle.Render(prompt + " → ")
}

// RenderBox renders content in a styled box.
func RenderBox(title, content string) string {
	boxTitle := TitleStyle.
		UnsetMargins().
		Render(title)

	boxContent := lipgloss.JoinVertical(
		lipgloss.Left,
		boxTitle,
		content,
	)

	return BoxStyle.Render(boxContent)
}
