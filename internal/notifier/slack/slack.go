package slack

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"

	"github.com/codr1/courtside/internal/courtstatus"
	"github.com/codr1/courtside/internal/notifier"
)

// slackClient is the subset of slack.Client used here.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

var ErrNotConfigured = errors.New("slack client or channel ID is not configured")

// Notifier posts court status transitions to a Slack channel.
type Notifier struct {
	api       slackClient
	channelID string
	dryRun    bool
}

func NewNotifier(token, channelID string) *Notifier {
	return &Notifier{
		api:       slack.New(token),
		channelID: channelID,
	}
}

// NewNotifierWithAPI creates a Notifier with a specific client instance.
func NewNotifierWithAPI(api slackClient, channelID string, dryRun bool) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		dryRun:    dryRun,
	}
}

// NotifyStatusChange posts only when the facility status or the occupant of
// the court changed. Next-slot churn is not worth a message.
func (n *Notifier) NotifyStatusChange(ctx context.Context, change notifier.StatusChange) error {
	if !change.FacilityChanged() && !change.CurrentSlotChanged() {
		return nil
	}
	if n.api == nil || n.channelID == "" {
		log.Ctx(ctx).Warn().Msg("Slack client or channel ID is not configured. Skipping notification.")
		return ErrNotConfigured
	}

	blocks := FormatStatusChange(change)
	if n.dryRun {
		log.Ctx(ctx).Info().
			Str("channel", n.channelID).
			Int64("court_id", change.CourtID).
			Int("blocks", len(blocks)).
			Msg("[Dry Run] Would send Slack message")
		return nil
	}

	_, ts, err := n.api.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(summary(change), false),
	)
	if err != nil {
		return fmt.Errorf("post slack message: %w", err)
	}
	log.Ctx(ctx).Debug().Str("ts", ts).Int64("court_id", change.CourtID).Msg("Sent Slack status notification")
	return nil
}

// FormatStatusChange renders a header, the current slot and the next slot.
func FormatStatusChange(change notifier.StatusChange) []slack.Block {
	header := slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, headerText(change), true, false))

	current := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, "*Now:* "+describeSlot(change.Current.Current), false, false),
		nil, nil,
	)
	next := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, "*Next:* "+describeSlot(change.Current.Next), false, false),
		nil, nil,
	)

	blocks := []slack.Block{header, current, next}
	if !change.ChangedAt.IsZero() {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.PlainTextType, "Updated "+change.ChangedAt.Format("3:04 PM"), false, false),
		))
	}
	return blocks
}

func headerText(change notifier.StatusChange) string {
	switch {
	case change.FacilityChanged():
		return fmt.Sprintf("%s is now %s", change.CourtLabel, change.Current.FacilityStatus)
	case change.Current.Current.IsBlocked:
		return fmt.Sprintf("%s is blocked", change.CourtLabel)
	case change.Current.Current.Exists:
		return fmt.Sprintf("%s is in use", change.CourtLabel)
	default:
		return fmt.Sprintf("%s is free", change.CourtLabel)
	}
}

func describeSlot(slot courtstatus.SlotInfo) string {
	if !slot.Exists {
		return slot.TimeRange
	}
	if slot.IsBlocked && slot.BlockInfo != nil {
		return fmt.Sprintf("%s, blocked for %s (%s)", slot.TimeRange, slot.BlockInfo.Reason, slot.BlockInfo.Notes)
	}
	if len(slot.Players) == 0 {
		return slot.TimeRange
	}
	names := make([]string, 0, len(slot.Players))
	for _, player := range slot.Players {
		name := player.Name
		if player.IsGuest {
			name += " (guest)"
		}
		names = append(names, name)
	}
	return slot.TimeRange + ", " + strings.Join(names, ", ")
}

func summary(change notifier.StatusChange) string {
	return headerText(change) + ": " + describeSlot(change.Current.Current)
}
