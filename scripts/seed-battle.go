// Seeds two players with creatures and spells and prints ready-to-use
// tokens, so a local battle can be driven with a websocket client by hand.
//
// Usage: JWT_SECRET=dev-secret go run scripts/seed-battle.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/zawomons/battle-server/internal/config"
	"github.com/zawomons/battle-server/internal/domain"
	"github.com/zawomons/battle-server/internal/repository"
	"github.com/zawomons/battle-server/internal/repository/postgres"
	"github.com/zawomons/battle-server/internal/service"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatal("config: %v", err)
	}

	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		fatal("database: %v", err)
	}
	repos := postgres.NewRepositories(db)
	auth := service.NewAuthService(repos.Player, cfg)

	ctx := context.Background()

	fireball := seedSpell(ctx, repos, "Fireball", domain.SpellClassDamage, 25)
	mend := seedSpell(ctx, repos, "Mend", domain.SpellClassHeal, 30)

	alice := seedPlayer(ctx, repos, "alice")
	bob := seedPlayer(ctx, repos, "bob")

	emberfang := seedCreature(ctx, repos, alice, "Emberfang", 20, fireball, mend)
	mosshide := seedCreature(ctx, repos, bob, "Mosshide", 10, fireball, mend)

	aliceToken := mustToken(auth, alice)
	bobToken := mustToken(auth, bob)

	fmt.Println("=== Seeded battle fixtures ===")
	fmt.Printf("alice       %s\n", alice.ID)
	fmt.Printf("  token     %s\n", aliceToken)
	fmt.Printf("  Emberfang %s\n", emberfang.ID)
	fmt.Printf("bob         %s\n", bob.ID)
	fmt.Printf("  token     %s\n", bobToken)
	fmt.Printf("  Mosshide  %s\n", mosshide.ID)
	fmt.Printf("spells      Fireball %s / Mend %s\n", fireball.ID, mend.ID)
	fmt.Println()
	fmt.Printf("connect: ws://localhost:%s/api/v1/ws?token=<token>\n", cfg.Port)
	fmt.Println(`then: {"type":"create_battle","payload":{"battle_type":"friendly"}}`)
}

func seedPlayer(ctx context.Context, repos *repository.Repositories, username string) *domain.Player {
	if existing, err := repos.Player.GetByUsername(ctx, username); err == nil {
		return existing
	}
	player := &domain.Player{ID: uuid.New(), Username: username}
	if err := repos.Player.Create(ctx, player); err != nil {
		fatal("create player %s: %v", username, err)
	}
	return player
}

func seedSpell(ctx context.Context, repos *repository.Repositories, name string, class domain.SpellClass, power int) *domain.Spell {
	spell := &domain.Spell{
		ID:             uuid.New(),
		Name:           name,
		Classification: class,
		BasePower:      power,
	}
	if err := repos.Spell.Create(ctx, spell); err != nil {
		fatal("create spell %s: %v", name, err)
	}
	return spell
}

func seedCreature(ctx context.Context, repos *repository.Repositories, owner *domain.Player, name string, initiative int, spells ...*domain.Spell) *domain.Creature {
	creature := &domain.Creature{
		ID:            uuid.New(),
		OwnerID:       &owner.ID,
		Name:          name,
		MaxHP:         100,
		CurrentHP:     100,
		MaxEnergy:     50,
		CurrentEnergy: 50,
		Damage:        25,
		Initiative:    initiative,
	}
	if err := repos.Creature.Create(ctx, creature); err != nil {
		fatal("create creature %s: %v", name, err)
	}
	for _, spell := range spells {
		if err := repos.Spell.Learn(ctx, creature.ID, spell.ID); err != nil {
			fatal("learn %s for %s: %v", spell.Name, name, err)
		}
	}
	return creature
}

func mustToken(auth *service.AuthService, player *domain.Player) string {
	token, err := auth.IssueToken(player)
	if err != nil {
		fatal("token for %s: %v", player.Username, err)
	}
	return token
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
