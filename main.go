package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/helen-caroline/create-atas/pkg/auth"
	"github.com/helen-caroline/create-atas/pkg/azure"
	"github.com/helen-caroline/create-atas/pkg/board"
	"github.com/helen-caroline/create-atas/pkg/colors"
	"github.com/helen-caroline/create-atas/pkg/config"
	"github.com/helen-caroline/create-atas/pkg/extract"
	"github.com/helen-caroline/create-atas/pkg/google"
	"github.com/helen-caroline/create-atas/pkg/group"
	"github.com/helen-caroline/create-atas/pkg/index"
	"github.com/helen-caroline/create-atas/pkg/model"
	"github.com/helen-caroline/create-atas/pkg/overdue"
	"github.com/helen-caroline/create-atas/pkg/util"
)

type options struct {
	// board
	cards      bool
	companies  bool
	sprints    bool
	allSprints bool
	input     string
	sprint    string
	company   string
	search    string
	itemType  string
	status    string
	priority  int

	// document
	ata   string
	req   string
	date  string
	title string

	// edit
	edit         int
	location     string
	meetingTime  string
	participants string
	summary      string
	nextSteps    string
	setStatus    string
	publish      bool

	unpublish int
	meetings  bool

	sweep   bool
	pending bool
}

func main() {
	// 1. Parse Flags
	var opts options
	flag.BoolVar(&opts.cards, "cards", false, "Print my work items of the sprint grouped by category")
	flag.BoolVar(&opts.companies, "companies", false, "List the companies found in my work items")
	flag.BoolVar(&opts.sprints, "sprints", false, "List the current sprint and the two before it")
	flag.BoolVar(&opts.allSprints, "all-sprints", false, "List every sprint of the team")
	flag.StringVar(&opts.input, "input", "", "Read the board, or bare work items, from a saved JSON payload instead of Azure DevOps ('-' for stdin)")
	flag.StringVar(&opts.sprint, "sprint", "", "Sprint id (default: current sprint)")
	flag.StringVar(&opts.company, "company", "", "Only work items of this company")
	flag.StringVar(&opts.search, "search", "", "Filter cards by title, description or id")
	flag.StringVar(&opts.itemType, "type", "", "Filter cards by type (ATA, Task, Bug, Feature)")
	flag.StringVar(&opts.status, "status", "", "Filter cards by state")
	flag.IntVar(&opts.priority, "priority", 0, "Filter cards by priority")

	flag.StringVar(&opts.ata, "ata", "", "Extract title, body and next steps from a generated ATA file ('-' for stdin)")
	flag.StringVar(&opts.req, "req", "", "Requerimento number for the document name")
	flag.StringVar(&opts.date, "date", "", "Meeting date (YYYY-MM-DD or DD/MM/YYYY)")
	flag.StringVar(&opts.title, "title", "", "Issue title for the document name")

	flag.IntVar(&opts.edit, "edit", 0, "Show or update the details of the ATA work item with this id")
	flag.StringVar(&opts.location, "location", "", "Meeting location")
	flag.StringVar(&opts.meetingTime, "time", "", "Meeting time (HH:MM)")
	flag.StringVar(&opts.participants, "participants", "", "Meeting participants, comma separated")
	flag.StringVar(&opts.summary, "summary", "", "Meeting objective")
	flag.StringVar(&opts.nextSteps, "next-steps", "", "Next steps, one per line (action; responsible; date)")
	flag.StringVar(&opts.setStatus, "set-status", "", "New state of the edited work item")
	flag.BoolVar(&opts.publish, "publish", false, "Publish the edited ATA meeting to Google Calendar")

	flag.IntVar(&opts.unpublish, "unpublish", 0, "Remove the calendar meeting of the ATA work item with this id")
	flag.BoolVar(&opts.meetings, "meetings", false, "List the upcoming ATA meetings in Google Calendar")

	flag.BoolVar(&opts.sweep, "sweep", false, "List next steps that are past their date")
	flag.BoolVar(&opts.pending, "pending", false, "List every tracked next step")

	calendarName := flag.String("calendar", "", "Google Calendar name to publish to (overrides config)")
	setCalendar := flag.String("set-calendar", "", "Set the default Google Calendar name")
	doAuth := flag.Bool("auth", false, "Authenticate with Google Calendar")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// 2. Handle Set Calendar
	if *setCalendar != "" {
		cfg.Calendar = *setCalendar
		if err := config.Save(cfg); err != nil {
			log.Fatalf("Error saving config: %v", err)
		}
		fmt.Printf("Default calendar set to: %s\n", *setCalendar)
		return
	}

	// 3. Determine Calendar (Priority: Flag > Config)
	if *calendarName != "" {
		cfg.Calendar = *calendarName
	}

	ctx := context.Background()

	// 4. Handle Authentication
	if *doAuth {
		tokenFile, err := auth.TokenPath()
		if err != nil {
			log.Fatalf("could not find path to configuration file: error %v", err)
		}
		if err := os.Remove(tokenFile); err == nil {
			log.Printf("Removed existing token file at '%s'", tokenFile)
		} else if !os.IsNotExist(err) {
			log.Fatalf("could not delete token file '%s', error %v. Please delete it manually", tokenFile, err)
		}
		if _, err := auth.GetCalendarService(ctx); err != nil {
			log.Fatalf("Authentication failed: %v", err)
		}
		log.Printf("Authentication successful! Token saved to %s", tokenFile)
		return
	}

	switch {
	case opts.ata != "":
		err = runDocument(opts)
	case opts.sweep:
		err = runSweep()
	case opts.pending:
		err = runPending()
	case opts.unpublish != 0:
		err = runUnpublish(ctx, cfg, opts.unpublish)
	case opts.meetings:
		err = runMeetings(ctx, cfg)
	case opts.edit != 0:
		err = runEdit(ctx, cfg, opts)
	case opts.cards || opts.companies || opts.sprints || opts.allSprints:
		err = runBoard(ctx, cfg, opts)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// runDocument extracts the sections of a generated ATA and names it.
func runDocument(opts options) error {
	raw, err := readInput(opts.ata)
	if err != nil {
		return fmt.Errorf("failed to read ATA: %w", err)
	}
	text := string(raw)
	doc := extract.Parse(text)

	date := opts.date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	return printJSON(struct {
		extract.Document
		Completa string           `json:"ata_completa"`
		Arquivo  string           `json:"arquivo"`
		Passos   []model.NextStep `json:"passos,omitempty"`
	}{
		Document: doc,
		Completa: extract.Compose(doc, text),
		Arquivo:  extract.BuildFilename(opts.req, date, opts.title, doc.Title),
		Passos:   extract.ParseNextSteps(doc.NextSteps),
	})
}

func printStep(marker string, e overdue.Entry) {
	line := fmt.Sprintf("%s %s  #%d  %s", marker, extract.NormalizeDate(e.Date), e.WorkItemID, e.Action)
	if e.Responsible != "" {
		line += " (" + e.Responsible + ")"
	}
	fmt.Println(line)
}

func runSweep() error {
	table, err := overdue.NewTable()
	if err != nil {
		return fmt.Errorf("failed to open next steps table: %w", err)
	}
	for _, e := range table.Sweep(time.Now()) {
		printStep("!", e)
	}
	return table.Save()
}

func runPending() error {
	table, err := overdue.NewTable()
	if err != nil {
		return fmt.Errorf("failed to open next steps table: %w", err)
	}
	for _, e := range table.Pending() {
		printStep("-", e)
	}
	return nil
}

func newAzureClient(ctx context.Context, cfg *config.Config) (*azure.Client, error) {
	httpClient, err := auth.AzureHTTPClient(ctx, cfg.Azure)
	if err != nil {
		return nil, err
	}
	return azure.NewClient(cfg.Azure, httpClient), nil
}

func runBoard(ctx context.Context, cfg *config.Config, opts options) error {
	session := board.NewSession(cfg.GroupCategories(), nil)

	if opts.input != "" {
		raw, err := readInput(opts.input)
		if err != nil {
			return fmt.Errorf("failed to read board: %w", err)
		}
		b, err := azure.ReadBoard(bytes.NewReader(raw))
		if err != nil {
			return err
		}
		session.Set(b)
	} else {
		client, err := newAzureClient(ctx, cfg)
		if err != nil {
			return err
		}
		if opts.sprints || opts.allSprints {
			var sprints []model.Sprint
			if opts.allSprints {
				sprints, err = client.Sprints(ctx)
			} else {
				sprints, err = client.LastSprints(ctx, 3)
			}
			if err != nil {
				return err
			}
			for _, s := range sprints {
				fmt.Printf("%s  %s  (%s - %s)\n", s.ID, s.Name, shortDate(s.StartDate), shortDate(s.EndDate))
			}
			if !opts.cards && !opts.companies {
				return nil
			}
		}
		b, err := session.Load(ctx, client, model.BoardQuery{SprintID: opts.sprint, Company: opts.company})
		if err != nil {
			return err
		}
		if b.Message != "" {
			log.Print(b.Message)
		}
	}

	if opts.companies {
		for _, c := range session.Companies() {
			fmt.Println(c)
		}
	}
	if opts.cards {
		if session.Sprint != nil {
			fmt.Printf("%s\n\n", session.Sprint.Name)
		}
		criteria := board.Criteria{Search: opts.search, Type: opts.itemType, Status: opts.status, Priority: opts.priority}
		printTree(session.Tree(criteria))
	}
	return nil
}

func shortDate(s string) string {
	if len(s) >= len("2006-01-02") {
		return extract.NormalizeDate(s[:len("2006-01-02")])
	}
	return s
}

func printTree(nodes []*group.Node) {
	group.Walk(nodes, func(n *group.Node, depth int) {
		indent := strings.Repeat("    ", depth)
		if n.IsHeader() {
			fmt.Printf("%s%s\n", indent, n.Title)
			return
		}
		marker := "•"
		if depth > 0 {
			marker = "└─"
		}
		state := ""
		if n.Item != nil && n.Item.Fields.State != "" {
			state = " (" + n.Item.Fields.State + ")"
		}
		kind := ""
		if n.Item != nil {
			kind = "[" + group.Classify(*n.Item) + "] "
		}
		fmt.Printf("%s%s #%s %s%s%s\n", indent, marker, n.ID, kind, n.Title, state)
	})
}

// runEdit shows the ATA details of a work item, or saves the ones given on
// the command line and optionally publishes the meeting.
func runEdit(ctx context.Context, cfg *config.Config, opts options) error {
	client, err := newAzureClient(ctx, cfg)
	if err != nil {
		return err
	}
	details, err := client.ATADetails(ctx, opts.edit)
	if err != nil {
		return err
	}

	changed := false
	apply := func(dst *string, v string) {
		if v != "" {
			*dst = v
			changed = true
		}
	}
	apply(&details.Location, opts.location)
	apply(&details.Time, opts.meetingTime)
	apply(&details.Participants, opts.participants)
	apply(&details.Summary, opts.summary)
	apply(&details.NextSteps, strings.ReplaceAll(opts.nextSteps, `\n`, "\n"))
	apply(&details.State, opts.setStatus)
	if opts.date != "" {
		apply(&details.Date, extract.ISODate(opts.date))
	}

	if changed {
		if opts.setStatus != "" && !opts.hasDetailEdits() {
			if _, err := client.UpdateStatus(ctx, opts.edit, opts.setStatus); err != nil {
				return err
			}
		} else if err := saveDetails(ctx, client, details); err != nil {
			return err
		}
		log.Printf("ATA #%d saved", opts.edit)
	}

	if opts.publish {
		if err := publish(ctx, cfg, *details); err != nil {
			return err
		}
	}
	return printJSON(details)
}

func (o options) hasDetailEdits() bool {
	return o.location != "" || o.meetingTime != "" || o.participants != "" ||
		o.summary != "" || o.nextSteps != "" || o.date != ""
}

func saveDetails(ctx context.Context, client *azure.Client, details *model.ATADetails) error {
	steps, err := overdue.NewTable()
	if err != nil {
		log.Printf("Warning: failed to open next steps table: %v", err)
	}

	var recorder board.StepRecorder
	if steps != nil {
		recorder = steps
	}
	session := board.NewSession(nil, recorder)
	session.Set(model.Board{WorkItems: []model.WorkItem{{
		ID:     details.WorkItemID,
		Fields: model.Fields{Title: details.Title, State: details.State},
	}}})
	if _, err := session.Edit(details.WorkItemID); err != nil {
		return err
	}
	if err := session.Save(ctx, client, *details); err != nil {
		session.Cancel()
		return err
	}
	if steps != nil {
		if err := steps.Save(); err != nil {
			log.Printf("Warning: failed to save next steps table: %v", err)
		}
	}
	return nil
}

// calendarStores opens the event index and color cache; either may be nil
// when its file cannot be read.
type calendarStores struct {
	index  *index.EventIndex
	colors *colors.ColorCache
}

func openCalendar(ctx context.Context, cfg *config.Config) (*google.CalendarClient, calendarStores, error) {
	var stores calendarStores
	var err error
	if stores.index, err = index.NewEventIndex(); err != nil {
		log.Printf("Warning: failed to initialize event index: %v", err)
	}
	if stores.colors, err = colors.NewColorCache(); err != nil {
		log.Printf("Warning: could not load color cache: %v", err)
	}

	gClient, err := google.NewClient(ctx, cfg.Calendar, stores.index, stores.colors)
	if err != nil {
		return nil, stores, fmt.Errorf("error creating Google Calendar client: %w", err)
	}
	return gClient, stores, nil
}

func (s calendarStores) save() {
	if s.index != nil {
		if err := s.index.Save(); err != nil {
			log.Printf("Warning: failed to save event index: %v", err)
		}
	}
	if s.colors != nil {
		if err := s.colors.Save(); err != nil {
			log.Printf("Warning: failed to save color cache: %v", err)
		}
	}
}

func publish(ctx context.Context, cfg *config.Config, details model.ATADetails) error {
	gClient, stores, err := openCalendar(ctx, cfg)
	if err != nil {
		return err
	}
	event, err := gClient.SyncMeeting(details)
	if err != nil {
		return fmt.Errorf("error publishing meeting: %w", err)
	}
	log.Printf("Meeting published: %s", event.HtmlLink)
	stores.save()
	return nil
}

func runUnpublish(ctx context.Context, cfg *config.Config, workItemID int) error {
	gClient, stores, err := openCalendar(ctx, cfg)
	if err != nil {
		return err
	}
	if err := gClient.DeleteMeeting(workItemID); err != nil {
		return fmt.Errorf("error removing meeting: %w", err)
	}
	log.Printf("Meeting of ATA #%d removed", workItemID)
	stores.save()
	return nil
}

func runMeetings(ctx context.Context, cfg *config.Config) error {
	gClient, _, err := openCalendar(ctx, cfg)
	if err != nil {
		return err
	}
	now := time.Now()
	meetings, err := gClient.ListMeetings(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()))
	if err != nil {
		return err
	}
	for _, e := range meetings {
		when := ""
		if e.Start != nil {
			when = e.Start.DateTime
			if when == "" {
				when = e.Start.Date
			}
		}
		id, _ := util.WorkItemIDFromEvent(e)
		fmt.Printf("%s  #%d  %s\n", when, id, e.Summary)
	}
	return nil
}
