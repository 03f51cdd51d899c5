package seeds

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/actuallystonmai/feed-recommender/internal/logging"
)

const (
	numUsers  = 20
	numPosts  = 50
	numEvents = 600
)

var topics = []string{"business", "covid", "entertainment", "movie", "politics", "sport", "tech"}

type userRow struct {
	UserID   int
	Gender   int
	Age      int
	Country  string
	City     string
	ExpGroup int
	OS       string
	Source   string
}

type postRow struct {
	Index      int
	PostID     int
	Text       string
	Topic      string
	TotalTfidf float64
	MaxTfidf   float64
	MeanTfidf  float64
}

type feedRow struct {
	Timestamp time.Time
	UserID    int
	PostID    int
	Action    string
	Target    int
}

func Setup(ctx context.Context, pool *pgxpool.Pool) error {
	log := logging.Component("seed")
	rng := rand.New(rand.NewSource(42))
	now := time.Now().UTC().Truncate(time.Second)

	// Truncate existing data before insert
	log.Info().Msg("truncating existing data")
	if _, err := pool.Exec(ctx, `
		TRUNCATE feed_data, posts_info_features, user_data CASCADE
	`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	log.Info().Int("rows", numUsers).Msg("inserting user_data")
	if err := insertUsers(ctx, pool, generateUsers(rng, numUsers)); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	log.Info().Int("rows", numPosts).Msg("inserting posts_info_features")
	if err := insertPosts(ctx, pool, generatePosts(rng, numPosts)); err != nil {
		return fmt.Errorf("seed posts: %w", err)
	}

	events := generateFeed(rng, numEvents, numUsers, numPosts, now)
	log.Info().Int("rows", len(events)).Msg("inserting feed_data")
	if err := insertFeed(ctx, pool, events); err != nil {
		return fmt.Errorf("seed feed: %w", err)
	}

	log.Info().Msg("seeding complete")
	return nil
}

func generateUsers(rng *rand.Rand, n int) []userRow {
	countries := []string{"Russia", "Ukraine", "Belarus", "Kazakhstan", "Turkey"}
	countryWeights := []float64{0.6, 0.15, 0.1, 0.1, 0.05}
	cities := map[string][]string{
		"Russia":     {"Moscow", "Saint Petersburg", "Novosibirsk", "Yekaterinburg"},
		"Ukraine":    {"Kyiv", "Kharkiv", "Odesa"},
		"Belarus":    {"Minsk", "Gomel"},
		"Kazakhstan": {"Almaty", "Astana"},
		"Turkey":     {"Istanbul", "Ankara"},
	}

	users := make([]userRow, 0, n)
	for i := range n {
		country := weightedChoice(rng, countries, countryWeights)
		cityList := cities[country]
		users = append(users, userRow{
			UserID:   i + 1,
			Gender:   rng.Intn(2),
			Age:      rng.Intn(48) + 14,
			Country:  country,
			City:     cityList[rng.Intn(len(cityList))],
			ExpGroup: rng.Intn(5),
			OS:       weightedChoice(rng, []string{"Android", "iOS"}, []float64{0.65, 0.35}),
			Source:   weightedChoice(rng, []string{"ads", "organic"}, []float64{0.45, 0.55}),
		})
	}
	return users
}

func generatePosts(rng *rand.Rand, n int) []postRow {
	headlines := map[string][]string{
		"business":      {"Markets rally after rate decision", "Retailer posts record quarter", "Startup raises new round"},
		"covid":         {"New restrictions announced", "Vaccination centres extend hours", "Case numbers fall again"},
		"entertainment": {"Festival line-up revealed", "Album tops the charts", "Awards night recap"},
		"movie":         {"A slow-burn thriller worth the wait", "Sequel outshines the original", "Director's cut finally released"},
		"politics":      {"Parliament debates budget", "Election turnout analysis", "Summit ends without agreement"},
		"sport":         {"Late goal settles derby", "Champion retires at thirty", "Underdogs reach the final"},
		"tech":          {"Phone maker unveils foldable", "Open source project hits v2", "Chip shortage eases"},
	}

	posts := make([]postRow, 0, n)
	for i := range n {
		topic := topics[i%len(topics)]
		list := headlines[topic]
		text := list[(i/len(topics))%len(list)]
		if i >= len(topics)*len(list) {
			text = fmt.Sprintf("%s (%d)", text, i/(len(topics)*len(list))+1)
		}

		words := 20 + rng.Intn(180)
		mean := powerLawScore(rng) * 0.5
		maxScore := math.Min(1, mean*(2+rng.Float64()*4))
		posts = append(posts, postRow{
			Index:      i,
			PostID:     i + 1,
			Text:       text,
			Topic:      topic,
			TotalTfidf: math.Round(mean*float64(words)*1000) / 1000,
			MaxTfidf:   math.Round(maxScore*1000) / 1000,
			MeanTfidf:  math.Round(mean*1000) / 1000,
		})
	}
	return posts
}

// generateFeed emits view events skewed towards low user and post ids; about
// a fifth of them are likes. A (user, post) pair is only emitted once.
func generateFeed(rng *rand.Rand, n, users, posts int, now time.Time) []feedRow {
	seen := make(map[[2]int]bool)
	events := make([]feedRow, 0, n)

	for range n {
		userID := int(math.Ceil(math.Pow(rng.Float64(), 1.5) * float64(users)))
		userID = max(1, min(userID, users))

		postID := int(math.Ceil(math.Pow(rng.Float64(), 1.3) * float64(posts)))
		postID = max(1, min(postID, posts))

		key := [2]int{userID, postID}
		if seen[key] {
			continue
		}
		seen[key] = true

		action := weightedChoice(rng, []string{"view", "like"}, []float64{0.8, 0.2})
		target := 0
		if action == "like" {
			target = 1
		}
		events = append(events, feedRow{
			Timestamp: now.Add(-time.Duration(rng.Intn(180*24)) * time.Hour),
			UserID:    userID,
			PostID:    postID,
			Action:    action,
			Target:    target,
		})
	}
	return events
}

func insertUsers(ctx context.Context, pool *pgxpool.Pool, users []userRow) error {
	args := make([]any, 0, len(users)*8)
	for _, u := range users {
		args = append(args, u.UserID, u.Gender, u.Age, u.Country, u.City, u.ExpGroup, u.OS, u.Source)
	}
	return insertRows(ctx, pool,
		"INSERT INTO user_data (user_id, gender, age, country, city, exp_group, os, source) VALUES ",
		8, args)
}

func insertPosts(ctx context.Context, pool *pgxpool.Pool, posts []postRow) error {
	args := make([]any, 0, len(posts)*7)
	for _, p := range posts {
		args = append(args, p.Index, p.PostID, p.Text, p.Topic, p.TotalTfidf, p.MaxTfidf, p.MeanTfidf)
	}
	return insertRows(ctx, pool,
		`INSERT INTO posts_info_features ("index", post_id, text, topic, total_tfidf, max_tfidf, mean_tfidf) VALUES `,
		7, args)
}

func insertFeed(ctx context.Context, pool *pgxpool.Pool, events []feedRow) error {
	args := make([]any, 0, len(events)*5)
	for _, e := range events {
		args = append(args, e.Timestamp, e.UserID, e.PostID, e.Action, e.Target)
	}
	return insertRows(ctx, pool,
		`INSERT INTO feed_data ("timestamp", user_id, post_id, action, target) VALUES `,
		5, args)
}

// insertRows runs one multi-row INSERT with width placeholders per row.
func insertRows(ctx context.Context, pool *pgxpool.Pool, prefix string, width int, args []any) error {
	if len(args) == 0 {
		return nil
	}
	query := prefix + placeholders(len(args)/width, width)
	_, err := pool.Exec(ctx, query, args...)
	return err
}

func placeholders(rows, width int) string {
	groups := make([]string, rows)
	cols := make([]string, width)
	for r := range rows {
		for c := range width {
			cols[c] = fmt.Sprintf("$%d", r*width+c+1)
		}
		groups[r] = "(" + strings.Join(cols, ", ") + ")"
	}
	return strings.Join(groups, ", ")
}

func powerLawScore(rng *rand.Rand) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.001
	}
	raw := math.Pow(u, 2.0)
	if raw < 0.01 {
		raw = 0.01
	}
	return math.Round(raw*100) / 100
}

func weightedChoice(rng *rand.Rand, choices []string, weights []float64) string {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return choices[i]
		}
	}
	return choices[len(choices)-1]
}
