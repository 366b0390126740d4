// Command packctl inspects a saved pack world without running the
// simulation. It opens the same store packsim writes and prints
// human-readable reports.
//
// Usage: packctl [status|pets|relationships|hierarchy|jealousy]
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"github.com/avaley/petpack/internal/config"
	"github.com/avaley/petpack/internal/entropy"
	"github.com/avaley/petpack/internal/pets"
	"github.com/avaley/petpack/internal/sim"
	"github.com/avaley/petpack/internal/social"
	"github.com/avaley/petpack/internal/statestore"
)

func init() {
	godotenv.Load()
}

func main() {
	// Reports go to stdout; keep the log channel quiet unless something
	// actually goes wrong.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	command := "status"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	configPath := os.Getenv("PETPACK_CONFIG")
	if configPath == "" {
		configPath = "petpack.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "packctl: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "packctl: open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ws, err := store.LoadWorld(ctx)
	if errors.Is(err, statestore.ErrNoWorld) {
		fmt.Println("No saved world yet. Run packsim first.")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "packctl: load world: %v\n", err)
		os.Exit(1)
	}

	// Rebuild the social engine from the snapshot so reports can use the
	// same category and rank logic the simulation does.
	pack := social.NewPack(entropy.New())
	pack.Restore(ws.Social)

	switch command {
	case "status":
		printStatus(ws, pack)
	case "pets":
		printPets(ws, pack)
	case "relationships":
		printRelationships(ws, pack)
	case "hierarchy":
		printHierarchy(ws, pack)
	case "jealousy":
		printJealousy(ws, pack)
	default:
		fmt.Fprintf(os.Stderr, "packctl: unknown command %q\n", command)
		fmt.Fprintln(os.Stderr, "usage: packctl [status|pets|relationships|hierarchy|jealousy]")
		os.Exit(2)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (statestore.Store, error) {
	if cfg.Store.Backend == "redis" {
		return statestore.OpenRedis(ctx, cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB)
	}
	return statestore.OpenSQLite(cfg.Store.Path)
}

// simNow maps the saved tick back onto the sim calendar.
func simNow(ws *statestore.WorldState) time.Time {
	epoch := ws.Epoch
	if epoch.IsZero() {
		epoch = ws.SavedAt.Add(-time.Duration(ws.Tick) * time.Minute)
	}
	return epoch.Add(time.Duration(ws.Tick) * time.Minute)
}

func printStatus(ws *statestore.WorldState, pack *social.Pack) {
	fmt.Printf("World saved %s (tick %s, %s)\n",
		humanize.Time(ws.SavedAt),
		humanize.Comma(ws.Tick),
		sim.SimTime(uint64(ws.Tick)),
	)
	fmt.Printf("Pets: %d   Hierarchy stability: %.2f\n", len(ws.Pets), pack.Stability())

	bestFriends := 0
	rivalries := 0
	jealous := 0
	for _, id := range pack.PetIDs() {
		if _, ok := pack.BestFriendOf(id); ok {
			bestFriends++
		}
		if snap, err := pack.JealousySnapshotOf(id); err == nil {
			rivalries += len(snap.Rivalries)
		}
		if isJealous, err := pack.IsJealous(id); err == nil && isJealous {
			jealous++
		}
	}
	fmt.Printf("Best friendships: %d   Rivalries: %d   Jealous pets: %d\n",
		bestFriends, rivalries, jealous)

	tricksKnown := 0
	tricksMastered := 0
	for _, p := range ws.Pets {
		tricksKnown += len(p.Tricks)
		for _, prof := range p.Tricks {
			if social.CanTeach(prof) {
				tricksMastered++
			}
		}
	}
	fmt.Printf("Tricks known: %d   Mastered: %d\n", tricksKnown, tricksMastered)
}

func printPets(ws *statestore.WorldState, pack *social.Pack) {
	now := simNow(ws)
	for _, p := range ws.Pets {
		rankLabel := ""
		if rank, ok := pack.RankOf(p.ID); ok {
			rankLabel = " — " + social.RankName(rank) + " of the pack"
		}
		fmt.Printf("%s (%s, %s, %d days old)%s\n",
			p.Name, p.Species, pets.SizeName(p.Size), p.AgeDays(now), rankLabel)

		tricks := make([]string, 0, len(p.Tricks))
		for trick := range p.Tricks {
			tricks = append(tricks, trick)
		}
		sort.Strings(tricks)
		for _, trick := range tricks {
			mark := ""
			if social.CanTeach(p.Tricks[trick]) {
				mark = " (mastered)"
			}
			fmt.Printf("    %s %.0f%%%s\n", trick, p.Tricks[trick]*100, mark)
		}
	}
}

func printRelationships(ws *statestore.WorldState, pack *social.Pack) {
	for _, id := range pack.PetIDs() {
		snap, err := pack.LedgerSnapshotOf(id)
		if err != nil {
			continue
		}
		fmt.Printf("%s\n", pack.PetName(id))
		if len(snap.Relationships) == 0 {
			fmt.Println("    knows nobody yet")
			continue
		}
		for _, rel := range snap.Relationships {
			fmt.Printf("    %s: %.1f (%s), trust %.0f, %d interactions, last %s\n",
				pack.PetName(rel.OtherID), rel.Friendship, rel.Category,
				rel.Trust, rel.Interactions, humanize.Time(rel.LastInteraction))
		}
		if friend, ok := pack.BestFriendOf(id); ok {
			fmt.Printf("    best friend: %s\n", pack.PetName(friend))
		}
	}
}

func printHierarchy(ws *statestore.WorldState, pack *social.Pack) {
	fmt.Printf("Stability: %.2f\n", pack.Stability())
	for i, m := range pack.HierarchyMembers() {
		fmt.Printf("%d. %s — %s (score %.1f, %d wins / %d losses)\n",
			i+1, pack.PetName(m.ID), social.RankName(m.Rank), m.Score, m.Wins, m.Losses)
	}
	order := pack.ResourcePriority()
	names := make([]string, len(order))
	for i, id := range order {
		names[i] = pack.PetName(id)
	}
	fmt.Printf("Feeding order: %v\n", names)
}

func printJealousy(ws *statestore.WorldState, pack *social.Pack) {
	for _, id := range pack.PetIDs() {
		snap, err := pack.JealousySnapshotOf(id)
		if err != nil {
			continue
		}
		if len(snap.Records) == 0 && len(snap.Rivalries) == 0 {
			continue
		}
		fmt.Printf("%s\n", pack.PetName(id))

		rivals := make([]string, 0, len(snap.Records))
		for rival := range snap.Records {
			rivals = append(rivals, rival)
		}
		sort.Strings(rivals)
		for _, rival := range rivals {
			intensity := snap.Records[rival]
			fmt.Printf("    toward %s: %.1f (%s)\n",
				pack.PetName(rival), intensity,
				social.LevelName(social.LevelForIntensity(intensity)))
		}
		for _, rival := range snap.Rivalries {
			fmt.Printf("    rival: %s\n", pack.PetName(rival))
		}
	}
}
