// Seeds the database with a generated cohort document for local development.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"journey-insights/internal/cache"
	"journey-insights/internal/config"
	"journey-insights/internal/extractor"
	"journey-insights/internal/facts"
	"journey-insights/internal/parser"
	"journey-insights/internal/registry"
	"journey-insights/internal/repository"
	"journey-insights/internal/service"
)

const seedProgramID = "prog-seed-001"

func main() {
	godotenv.Load()
	ctx := context.Background()
	cfg := config.Load()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)
	db := mongoClient.Database(cfg.MongoDB)

	rdb := redis.NewClient(&redis.Options{Addr: strings.TrimPrefix(cfg.RedisURI, "redis://")})
	defer rdb.Close()

	reg := registry.Default()
	ingestSvc := service.NewIngestService(
		parser.New(reg),
		repository.NewDocumentRepo(db),
		repository.NewFactsRepo(db),
		cache.NewFactsCache(rdb),
		facts.SessionDeps{Registry: reg, Extractor: extractor.NewMockExtractor()},
	)

	doc := generateCohortDocument(12, 42)
	result, err := ingestSvc.IngestDocument(ctx, seedProgramID, "seed-cohort.txt", doc)
	if err != nil {
		log.Fatal("Failed to ingest seed document:", err)
	}

	log.Printf("Seeded program %s: %d sessions parsed, %d facts built, %d skipped, %d failed",
		result.ProgramID, result.SessionsParsed, result.FactsBuilt,
		len(result.SessionsSkipped), len(result.FactsFailed))
}

var reflectionPool = []string{
	"I feel more confident about my future and my goals are clearer than before.",
	"The group sessions helped me feel part of a community again.",
	"My finances are still a worry but I have a steady plan now.",
	"Talking with my mentor improved my relationship with my family.",
	"I learned to manage stress better and my health has improved.",
}

func generateCohortDocument(sessions int, seed int64) string {
	rng := rand.New(rand.NewSource(seed))
	var b strings.Builder

	b.WriteString("Offering Details:\n")
	fmt.Fprintf(&b, "- Program ID: %s\n", seedProgramID)
	b.WriteString("- Program Name: Pathways Support Program\n\n")

	for i := 1; i <= sessions; i++ {
		fmt.Fprintf(&b, "Version Details:\n")
		fmt.Fprintf(&b, "- Session ID: seed-%03d\n", i)
		b.WriteString("- Schema Version: 1.0\n")
		fmt.Fprintf(&b, "- Generator Version: seed/%d\n", seed)
		b.WriteString("- Sentiment: positive\n\n")

		b.WriteString("Participant Demographics:\n")
		fmt.Fprintf(&b, "- Birth Year: %d\n", 1960+rng.Intn(45))
		fmt.Fprintf(&b, "- Gender: %s\n", pick(rng, "female", "male", "nonbinary"))
		fmt.Fprintf(&b, "- Zip Code: 941%02d\n", rng.Intn(100))
		b.WriteString("\n")

		b.WriteString("Program Application:\n")
		b.WriteString("Reasons:\n")
		b.WriteString("- build a stable routine\n")
		fmt.Fprintf(&b, "- %s\n", pick(rng, "reconnect with my community", "find direction", "improve my wellbeing"))
		b.WriteString("Challenges:\n")
		fmt.Fprintf(&b, "- %s\n", pick(rng, "housing insecurity", "unemployment", "social isolation"))
		b.WriteString("\n")

		b.WriteString("Session Milestones:\n")
		writeSurvey(&b, rng, "Pre-Program Survey", 3, 6)
		b.WriteString("Milestone:\n")
		b.WriteString("- Title: Monthly Check-in\n")
		b.WriteString("- Completed: 2026-03-14\n")
		b.WriteString("Meeting Milestone\n")
		b.WriteString("- Scheduled: 2026-03-14T10:00:00Z\n")
		b.WriteString("- With: Case Manager\n\n")

		b.WriteString("Milestone:\n")
		b.WriteString("- Title: Midpoint Reflection\n")
		b.WriteString("- Completed: 2026-05-02\n")
		b.WriteString("Reflection Milestone\n")
		fmt.Fprintf(&b, "%s\n\n", reflectionPool[rng.Intn(len(reflectionPool))])

		writeSurvey(&b, rng, "Post-Program Survey", 6, 9)
	}
	return b.String()
}

func writeSurvey(b *strings.Builder, rng *rand.Rand, title string, low, high int) {
	b.WriteString("Milestone:\n")
	fmt.Fprintf(b, "- Title: %s\n", title)
	b.WriteString("- Completed: 2026-06-20\n")
	b.WriteString("Applicant Survey Milestone\n")
	b.WriteString("Answers:\n")
	for _, key := range registry.Default().ScaleKeys() {
		score := low + rng.Intn(high-low+1)
		fmt.Fprintf(b, "- %s: %d\n", key.Label, score)
	}
	b.WriteString("\n")
}

func pick(rng *rand.Rand, options ...string) string {
	return options[rng.Intn(len(options))]
}
