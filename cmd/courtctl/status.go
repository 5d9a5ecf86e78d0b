package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/codr1/courtside/internal/courtstatus"
	"github.com/codr1/courtside/internal/models"
)

const requestTimeout = 15 * time.Second

var (
	refreshStatus bool
	deriveDate    string
	deriveAt      string
)

func init() {
	statusCmd.Flags().BoolVar(&refreshStatus, "refresh", false, "Force a refresh before printing")
	deriveCmd.Flags().StringVar(&deriveDate, "date", "", "Business date to derive for (YYYY-MM-DD, default today)")
	deriveCmd.Flags().StringVar(&deriveAt, "at", "", "Wall-clock time to derive at (HH:MM, default now)")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(deriveCmd)
	rootCmd.AddCommand(healthCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := doRequest(cmd.Context(), http.MethodGet, "/health")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(body)))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [court_id...]",
	Short: "Show the live status of courts on a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseCourtIDs(args)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			ids, err = listRemoteCourtIDs(cmd.Context())
			if err != nil {
				return err
			}
		}

		method, suffix := http.MethodGet, ""
		if refreshStatus {
			method, suffix = http.MethodPost, "/refresh"
		}
		for _, id := range ids {
			body, err := doRequest(cmd.Context(), method, fmt.Sprintf("/api/v1/courts/%d/status%s", id, suffix))
			if err != nil {
				return err
			}
			var resp struct {
				Court     string                    `json:"court"`
				Status    courtstatus.DerivedStatus `json:"status"`
				IsLoading bool                      `json:"isLoading"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("decode court %d status: %w", id, err)
			}
			printStatus(cmd.OutOrStdout(), resp.Court, resp.Status)
		}
		return nil
	},
}

var deriveCmd = &cobra.Command{
	Use:   "derive <court_id>",
	Short: "Derive a court's status from the local database at a given time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseCourtIDs(args)
		if err != nil {
			return err
		}
		env, err := openLocal()
		if err != nil {
			return err
		}
		defer env.close()

		at, err := deriveTime(time.Now().In(env.loc), env.loc, deriveDate, deriveAt)
		if err != nil {
			return err
		}

		court, err := env.store.GetCourt(cmd.Context(), ids[0])
		if err != nil {
			return err
		}
		list, err := env.store.ReservationsForDate(cmd.Context(), court.ID, at.Format(models.DateLayout))
		if err != nil {
			return err
		}

		hours := courtstatus.BusinessHours{Open: env.cfg.Status.OpenHour, Close: env.cfg.Status.CloseHour}
		printStatus(cmd.OutOrStdout(), court.Label(), courtstatus.ComputeStatus(list, at, hours))
		return nil
	},
}

// deriveTime combines optional date and HH:MM overrides with now, in loc.
func deriveTime(now time.Time, loc *time.Location, date, clock string) (time.Time, error) {
	day := now
	if date != "" {
		parsed, err := time.ParseInLocation(models.DateLayout, date, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
		}
		day = parsed
	}
	hour, minute := now.Hour(), now.Minute()
	if clock != "" {
		parsed, err := time.Parse("15:04", clock)
		if err != nil {
			return time.Time{}, fmt.Errorf("--at must be HH:MM: %w", err)
		}
		hour, minute = parsed.Hour(), parsed.Minute()
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}

func printStatus(w io.Writer, label string, status courtstatus.DerivedStatus) {
	fmt.Fprintf(w, "%s [%s]\n", label, status.FacilityStatus)
	fmt.Fprintf(w, "  now:  %s\n", describeSlot(status.Current))
	fmt.Fprintf(w, "  next: %s\n", describeSlot(status.Next))
	if status.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", status.Error)
	}
}

func describeSlot(slot courtstatus.SlotInfo) string {
	if slot.IsBlocked && slot.BlockInfo != nil {
		return fmt.Sprintf("%s  blocked: %s (%s)", slot.TimeRange, slot.BlockInfo.Reason, slot.BlockInfo.Notes)
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
	return fmt.Sprintf("%s  %s", slot.TimeRange, strings.Join(names, ", "))
}

func parseCourtIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid court id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func listRemoteCourtIDs(ctx context.Context) ([]int64, error) {
	body, err := doRequest(ctx, http.MethodGet, "/api/v1/courts")
	if err != nil {
		return nil, err
	}
	var resp struct {
		Courts []models.Court `json:"courts"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode courts: %w", err)
	}
	ids := make([]int64, 0, len(resp.Courts))
	for _, court := range resp.Courts {
		ids = append(ids, court.ID)
	}
	return ids, nil
}

func doRequest(ctx context.Context, method, endpoint string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(host, "/")+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
