package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/codr1/courtside/internal/models"
	"github.com/codr1/courtside/internal/scheduler"
)

var (
	listCourtID int64
	listDate    string
	addCourtID  int64
	addDate     string
	addStart    int
	addEnd      int
	addStatus   string
	addPlayers  []string
	addGuests   []string
	addReason   string
	addNotes    string
	courtNumber int64
	courtName   string
	purgeDays   int
	setStatus   string
)

func init() {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List a court's reservations for a day",
		RunE:  runReservationsList,
	}
	listCmd.Flags().Int64Var(&listCourtID, "court", 0, "Court ID")
	listCmd.Flags().StringVar(&listDate, "date", "", "Date (YYYY-MM-DD, default today)")
	_ = listCmd.MarkFlagRequired("court")

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create a reservation or block",
		RunE:  runReservationsAdd,
	}
	addCmd.Flags().Int64Var(&addCourtID, "court", 0, "Court ID")
	addCmd.Flags().StringVar(&addDate, "date", "", "Date (YYYY-MM-DD, default today)")
	addCmd.Flags().IntVar(&addStart, "start", 0, "First hour (0-23)")
	addCmd.Flags().IntVar(&addEnd, "end", 0, "End hour, exclusive (1-24)")
	addCmd.Flags().StringVar(&addStatus, "status", string(models.StatusConfirmed), "Reservation status")
	addCmd.Flags().StringSliceVar(&addPlayers, "player", nil, "Player name (repeatable)")
	addCmd.Flags().StringSliceVar(&addGuests, "guest", nil, "Guest player name (repeatable)")
	addCmd.Flags().StringVar(&addReason, "block-reason", "", "Block reason, for --status blocked")
	addCmd.Flags().StringVar(&addNotes, "block-notes", "", "Block notes, for --status blocked")
	_ = addCmd.MarkFlagRequired("court")
	_ = addCmd.MarkFlagRequired("start")
	_ = addCmd.MarkFlagRequired("end")

	setStatusCmd := &cobra.Command{
		Use:   "set-status <reservation_id>",
		Short: "Change a reservation's status (cancelled, no-show, confirmed, ...)",
		Args:  cobra.ExactArgs(1),
		RunE:  runReservationsSetStatus,
	}
	setStatusCmd.Flags().StringVar(&setStatus, "status", string(models.StatusCancelled), "New status")

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete reservations older than the retention window",
		RunE:  runReservationsPurge,
	}
	purgeCmd.Flags().IntVar(&purgeDays, "days", 0, "Retention in days (default from config, minimum 1)")

	reservationsCmd := &cobra.Command{
		Use:   "reservations",
		Short: "Manage reservations in the local database",
	}
	reservationsCmd.AddCommand(listCmd, addCmd, setStatusCmd, purgeCmd)

	courtsAddCmd := &cobra.Command{
		Use:   "add",
		Short: "Create a court",
		RunE:  runCourtsAdd,
	}
	courtsAddCmd.Flags().Int64Var(&courtNumber, "number", 0, "Court number")
	courtsAddCmd.Flags().StringVar(&courtName, "name", "", "Display name")
	_ = courtsAddCmd.MarkFlagRequired("number")

	courtsListCmd := &cobra.Command{
		Use:   "list",
		Short: "List courts",
		RunE:  runCourtsList,
	}

	courtsCmd := &cobra.Command{
		Use:   "courts",
		Short: "Manage courts in the local database",
	}
	courtsCmd.AddCommand(courtsAddCmd, courtsListCmd)

	rootCmd.AddCommand(reservationsCmd)
	rootCmd.AddCommand(courtsCmd)
}

func runReservationsList(cmd *cobra.Command, args []string) error {
	env, err := openLocal()
	if err != nil {
		return err
	}
	defer env.close()

	date := listDate
	if date == "" {
		date = time.Now().In(env.loc).Format(models.DateLayout)
	}
	list, err := env.store.ReservationsForDate(cmd.Context(), listCourtID, date)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSLOT\tSTATUS\tPLAYERS")
	for _, res := range list {
		names := make([]string, 0, len(res.Players))
		for _, player := range res.Players {
			names = append(names, player.Name)
		}
		if res.IsBlocked() {
			names = []string{res.BlockReason}
		}
		fmt.Fprintf(w, "%s\t%02d-%02d\t%s\t%s\n", res.ID, res.TimeSlot, res.EndTimeSlot, res.Status, strings.Join(names, ", "))
	}
	return w.Flush()
}

func runReservationsAdd(cmd *cobra.Command, args []string) error {
	status, err := models.ParseReservationStatus(addStatus)
	if err != nil {
		return err
	}

	env, err := openLocal()
	if err != nil {
		return err
	}
	defer env.close()

	date := addDate
	if date == "" {
		date = time.Now().In(env.loc).Format(models.DateLayout)
	}

	players := make([]models.Player, 0, len(addPlayers)+len(addGuests))
	for _, name := range addPlayers {
		players = append(players, models.Player{Name: name})
	}
	for _, name := range addGuests {
		players = append(players, models.Player{Name: name, IsGuest: true})
	}

	created, err := env.store.Create(cmd.Context(), models.Reservation{
		CourtID:     addCourtID,
		Date:        date,
		TimeSlot:    addStart,
		EndTimeSlot: addEnd,
		Status:      status,
		Players:     players,
		BlockReason: addReason,
		BlockNotes:  addNotes,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created reservation %s on court %d, %s %02d:00-%02d:00\n", created.ID, created.CourtID, created.Date, created.TimeSlot, created.EndTimeSlot)
	return nil
}

func runReservationsSetStatus(cmd *cobra.Command, args []string) error {
	status, err := models.ParseReservationStatus(setStatus)
	if err != nil {
		return err
	}

	env, err := openLocal()
	if err != nil {
		return err
	}
	defer env.close()

	updated, err := env.store.UpdateStatus(cmd.Context(), args[0], status)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reservation %s is now %s\n", updated.ID, updated.Status)
	return nil
}

func runReservationsPurge(cmd *cobra.Command, args []string) error {
	env, err := openLocal()
	if err != nil {
		return err
	}
	defer env.close()

	days := purgeDays
	if days == 0 {
		days = env.cfg.Retention.Days
	}
	deleted, err := scheduler.PurgeExpiredReservations(cmd.Context(), env.store, time.Now(), env.loc, days)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d reservations\n", deleted)
	return nil
}

func runCourtsAdd(cmd *cobra.Command, args []string) error {
	env, err := openLocal()
	if err != nil {
		return err
	}
	defer env.close()

	court, err := env.store.CreateCourt(cmd.Context(), models.Court{Name: courtName, CourtNumber: courtNumber})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created court %d (%s)\n", court.ID, court.Label())
	return nil
}

func runCourtsList(cmd *cobra.Command, args []string) error {
	env, err := openLocal()
	if err != nil {
		return err
	}
	defer env.close()

	courts, err := env.store.ListCourts(cmd.Context())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNUMBER\tNAME")
	for _, court := range courts {
		fmt.Fprintf(w, "%d\t%d\t%s\n", court.ID, court.CourtNumber, court.Label())
	}
	return w.Flush()
}
