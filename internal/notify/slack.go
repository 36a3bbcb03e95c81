package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/manav03panchal/remindbot/internal/model"
)

// SlackFormatter formats notifications for Slack webhooks.
type SlackFormatter struct{}

// slackPayload represents a Slack webhook payload.
type slackPayload struct {
	Text        string        `json:"text,omitempty"`
	Blocks      []slackBlock  `json:"blocks,omitempty"`
	Attachments []slackAttach `json:"attachments,omitempty"`
}

// slackBlock represents a Slack block.
type slackBlock struct {
	Type     string           `json:"type"`
	Text     *slackBlockText  `json:"text,omitempty"`
	Fields   []slackBlockText `json:"fields,omitempty"`
	Elements []slackBlockText `json:"elements,omitempty"`
}

// slackBlockText represents text in a Slack block.
type slackBlockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// slackAttach represents a Slack attachment (for color).
type slackAttach struct {
	Color    string `json:"color,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

// Format converts a notification to Slack webhook format.
func (f *SlackFormatter) Format(n *model.Notification) ([]byte, error) {
	color := n.Color
	if color == 0 {
		color = model.ColorWarning
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackBlockText{
				Type: "plain_text",
				Text: n.Title,
			},
		},
		{
			Type: "section",
			Text: &slackBlockText{
				Type: "mrkdwn",
				Text: slackEscape(n.Message),
			},
		},
	}

	if len(n.Fields) > 0 {
		var fieldTexts []slackBlockText
		for _, key := range sortedKeys(n.Fields) {
			fieldTexts = append(fieldTexts, slackBlockText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*%s*\n%s", slackEscape(key), slackEscape(n.Fields[key])),
			})
		}
		blocks = append(blocks, slackBlock{
			Type:   "section",
			Fields: fieldTexts,
		})
	}

	blocks = append(blocks, slackBlock{
		Type: "context",
		Elements: []slackBlockText{{
			Type: "mrkdwn",
			Text: fmt.Sprintf("%s · for %s", n.StartsIn(), slackEscape(n.Owner)),
		}},
	})

	payload := slackPayload{
		Text:   n.Message, // Fallback text
		Blocks: blocks,
		Attachments: []slackAttach{
			{
				Color:    colorToHex(color),
				Fallback: n.Title,
			},
		},
	}

	return json.Marshal(payload)
}

// ContentType returns the content type for Slack webhooks.
func (f *SlackFormatter) ContentType() string {
	return "application/json"
}

// colorToHex converts an integer color to hex string.
func colorToHex(color int) string {
	return fmt.Sprintf("#%06X", color)
}

// slackEscape escapes special characters for Slack mrkdwn.
func slackEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
