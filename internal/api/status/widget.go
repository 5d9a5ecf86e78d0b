package status

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/codr1/courtside/internal/courtstatus"
	"github.com/codr1/courtside/internal/models"
)

type widgetData struct {
	Court     models.Court
	Status    courtstatus.DerivedStatus
	IsLoading bool
}

func boardPageComponent(widgets []widgetData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>Court Status</title><script src="https://unpkg.com/htmx.org@1.9.12"></script></head>`); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<body class="bg-gray-50"><main class="mx-auto max-w-5xl p-6 space-y-6"><h1 class="text-2xl font-semibold text-gray-900">Court Status</h1>`); err != nil {
			return err
		}
		if _, err := io.WriteString(w, buildBoardHTML(widgets)); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

func widgetComponent(data widgetData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, buildWidgetHTML(data))
		return err
	})
}

func buildBoardHTML(widgets []widgetData) string {
	if len(widgets) == 0 {
		return `<div class="rounded border border-dashed p-6 text-center text-sm text-gray-500">No courts configured.</div>`
	}

	var builder strings.Builder
	builder.WriteString(`<div class="grid gap-4 md:grid-cols-2">`)
	for _, widget := range widgets {
		builder.WriteString(buildWidgetHTML(widget))
	}
	builder.WriteString(`</div>`)
	return builder.String()
}

func buildWidgetHTML(data widgetData) string {
	courtID := data.Court.ID
	current := data.Status

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf(
		`<section id="court-status-%d" class="court-status rounded-lg border bg-white p-4 shadow-sm" data-facility-status="%s" hx-get="/api/v1/courts/%d/status" hx-trigger="every 60s" hx-swap="outerHTML">`,
		courtID,
		html.EscapeString(string(current.FacilityStatus)),
		courtID,
	))
	builder.WriteString(`<header class="flex items-center justify-between">`)
	builder.WriteString(fmt.Sprintf(`<h2 class="text-lg font-semibold text-gray-900">%s</h2>`, html.EscapeString(data.Court.Label())))
	builder.WriteString(fmt.Sprintf(`<span class="rounded-full px-2 py-0.5 text-xs font-medium %s">%s</span>`, badgeClass(current), badgeText(current)))
	builder.WriteString(`</header>`)

	builder.WriteString(buildSlotHTML("Now", current.Current))
	builder.WriteString(buildSlotHTML("Next", current.Next))

	if current.Error != "" {
		builder.WriteString(`<p class="mt-2 text-xs text-red-600">Showing fallback status while reservations are unavailable.</p>`)
	}

	builder.WriteString(`<footer class="mt-3 flex items-center justify-between text-xs text-gray-500">`)
	if current.LastUpdated.IsZero() {
		builder.WriteString(`<span>Not yet updated</span>`)
	} else {
		builder.WriteString(fmt.Sprintf(`<span>Updated %s</span>`, html.EscapeString(current.LastUpdated.Format("3:04 PM"))))
	}
	label := "Refresh"
	if data.IsLoading {
		label = "Refreshing…"
	}
	builder.WriteString(fmt.Sprintf(
		`<button type="button" class="rounded border px-2 py-1 text-gray-700 hover:bg-gray-100" hx-post="/api/v1/courts/%d/status/refresh" hx-target="#court-status-%d" hx-swap="outerHTML">%s</button>`,
		courtID,
		courtID,
		label,
	))
	builder.WriteString(`</footer></section>`)
	return builder.String()
}

func buildSlotHTML(heading string, slot courtstatus.SlotInfo) string {
	var builder strings.Builder
	builder.WriteString(`<div class="mt-3">`)
	builder.WriteString(fmt.Sprintf(`<div class="text-xs uppercase tracking-wide text-gray-500">%s</div>`, html.EscapeString(heading)))
	builder.WriteString(fmt.Sprintf(`<div class="text-sm font-medium text-gray-900">%s</div>`, html.EscapeString(slot.TimeRange)))

	switch {
	case slot.IsBlocked && slot.BlockInfo != nil:
		builder.WriteString(fmt.Sprintf(
			`<div class="mt-1 text-sm text-amber-700"><span class="font-medium">%s</span> %s</div>`,
			html.EscapeString(blockTitle(slot.BlockInfo.Reason)),
			html.EscapeString(slot.BlockInfo.Notes),
		))
	case len(slot.Players) > 0:
		builder.WriteString(`<ul class="mt-1 flex flex-wrap gap-2">`)
		for _, player := range slot.Players {
			builder.WriteString(buildPlayerHTML(player))
		}
		builder.WriteString(`</ul>`)
	}

	builder.WriteString(`</div>`)
	return builder.String()
}

func buildPlayerHTML(player courtstatus.PlayerInfo) string {
	guest := ""
	if player.IsGuest {
		guest = ` <span class="text-xs text-gray-400">(guest)</span>`
	}
	return fmt.Sprintf(
		`<li class="flex items-center gap-1 text-sm"><span class="inline-flex h-7 w-7 items-center justify-center rounded-full text-xs font-semibold" style="background-color:%s;color:%s">%s</span>%s%s</li>`,
		html.EscapeString(player.AvatarColor),
		html.EscapeString(player.TextColor),
		html.EscapeString(player.Initials),
		html.EscapeString(player.Name),
		guest,
	)
}

func badgeClass(status courtstatus.DerivedStatus) string {
	switch {
	case status.FacilityStatus == courtstatus.FacilityClosed:
		return "bg-gray-200 text-gray-700"
	case status.Current.Exists:
		return "bg-blue-100 text-blue-800"
	default:
		return "bg-green-100 text-green-800"
	}
}

// badgeText follows the current slot; FacilityOpen only means the court has
// bookings somewhere in the day.
func badgeText(status courtstatus.DerivedStatus) string {
	switch {
	case status.FacilityStatus == courtstatus.FacilityClosed:
		return "Closed"
	case status.Current.IsBlocked:
		return "Blocked"
	case status.Current.Exists:
		return "In use"
	default:
		return "Available now"
	}
}

func blockTitle(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "Blocked"
	}
	runes := []rune(reason)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
