// Example wiring: an in-memory event source behind the export handler.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/campus-sis/icalport/export"
	"github.com/campus-sis/icalport/server"
	"github.com/campus-sis/icalport/server/storage/memory"
)

func main() {
	store := memory.New()
	seed(store)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	handler, err := server.NewHandler("/calendar/", store, nil, nil, logger)
	if err != nil {
		log.Fatal(err)
	}

	http.Handle("/calendar/", handler)
	log.Println("listening on :8080, try /calendar/calendar.ics")
	log.Fatal(http.ListenAndServe(":8080", nil))
}

func seed(store *memory.Store) {
	ctx := context.Background()
	start := time.Now().AddDate(0, 0, 7).Truncate(time.Hour)

	events := []export.Event{
		{
			Title:          "Student Government Assembly",
			Description:    "Monthly general assembly, open to all students.",
			Location:       "Main Hall, Room 201",
			StartAt:        start,
			EndAt:          start.Add(2 * time.Hour),
			Status:         export.StatusPublished,
			OrganizerName:  "Student Government",
			RecurrenceRule: "FREQ=MONTHLY;BYMONTHDAY=1",
			URL:            "https://example.edu/events/assembly",
		},
		{
			Title:   "Scholarship Application Deadline",
			StartAt: start.AddDate(0, 1, 0),
			EndAt:   start.AddDate(0, 1, 0),
			AllDay:  true,
			Status:  export.StatusPublished,
			URL:     "https://example.edu/events/scholarship-deadline",
		},
	}

	for i := range events {
		if err := store.CreateEvent(ctx, &events[i]); err != nil {
			log.Fatal(err)
		}
	}
}
