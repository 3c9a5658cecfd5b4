// Package assets holds the built-in template catalog: glyphs, monster and
// item stats, and the playable classes.
package assets

import "terminus-core/internal/template"

// Emoji constants used as entity glyphs.
const (
	GlyphPlayer       = "🧙"
	GlyphCrystalCrawl = "🦀"
	GlyphNeonSpecter  = "👻"
	GlyphPrismDrake   = "🐉"
	GlyphVoidTendril  = "🪱"
	GlyphThoughtLeech = "🧠"
	GlyphFractalGolem = "🗿"
	GlyphEntropyBloom = "🌀"
	GlyphApexWarden   = "🤖"
	GlyphHyperflask   = "🧪"
	GlyphPrismShard   = "💎"
	GlyphNullCloak    = "🫥"
	GlyphTesseract    = "📦"
	GlyphMemoryScroll = "📜"

	GlyphCrystalHelm   = "⛑️"
	GlyphFrostWeave    = "🧥"
	GlyphFluxTreads    = "👢"
	GlyphShardBlade    = "🗡️"
	GlyphResonanceMaul = "🔨"
	GlyphPhaseMirror   = "🪞"
)

// PlayerID is the default player template.
const PlayerID = "player"

var monsters = []template.Template{
	{ID: "crystal_crawl", Name: "Crystal Crawl", Glyph: GlyphCrystalCrawl, HP: 8, Attack: 3, Defense: 2, Sight: 5, Behavior: "aggressive",
		Lore: "A failed experiment in mineral cognition. It was almost sentient."},
	{ID: "neon_specter", Name: "Neon Specter", Glyph: GlyphNeonSpecter, HP: 6, Attack: 4, Defense: 1, Sight: 7, Behavior: "patrol", PatrolRadius: 6,
		Lore: "Light given malice. The lab notes called it a 'luminous success'."},
	{ID: "thought_leech", Name: "Thought Leech", Glyph: GlyphThoughtLeech, HP: 10, Attack: 4, Defense: 1, Sight: 8, Behavior: "aggressive",
		Lore: "Feeds on cognition. You feel briefly smarter. Then you feel its absence."},
	{ID: "prism_drake", Name: "Prism Drake", Glyph: GlyphPrismDrake, HP: 14, Attack: 6, Defense: 3, Sight: 6, Behavior: "aggressive",
		Lore: "A security asset repurposed by someone with worse ideas than the original designers."},
	{ID: "void_tendril", Name: "Void Tendril", Glyph: GlyphVoidTendril, HP: 12, Attack: 7, Defense: 0, Sight: 4, Behavior: "static",
		Lore: "An appendage of something larger that, mercifully, did not follow it through."},
	{ID: "fractal_golem", Name: "Fractal Golem", Glyph: GlyphFractalGolem, HP: 20, Attack: 5, Defense: 5, Sight: 5, Behavior: "passive",
		Lore: "Built to last. It outlasted its builders by several geological epochs."},
	{ID: "entropy_bloom", Name: "Entropy Bloom", Glyph: GlyphEntropyBloom, HP: 18, Attack: 8, Defense: 2, Sight: 9, Behavior: "aggressive",
		Lore: "Chaos given floral form. Its beauty is genuinely impressive, and lethal."},
	{ID: "apex_warden", Name: "Apex Warden", Glyph: GlyphApexWarden, HP: 60, Attack: 12, Defense: 6, Sight: 10, Behavior: "patrol", PatrolRadius: 4, Capacity: 2,
		Lore: "A curator turned gatekeeper. Its resignation letter was never filed."},
}

var items = []template.Template{
	{ID: "hyperflask", Name: "Hyperflask", Glyph: GlyphHyperflask, Heal: 10},
	{ID: "prism_shard", Name: "Prism Shard", Glyph: GlyphPrismShard, Heal: 4},
	{ID: "tesseract", Name: "Tesseract Cube", Glyph: GlyphTesseract, Heal: 20},
	{ID: "memory_scroll", Name: "Memory Scroll", Glyph: GlyphMemoryScroll, Heal: 6},

	// equipment; Slot values match component.ItemSlot
	{ID: "crystal_helm", Name: "Crystal Helm", Glyph: GlyphCrystalHelm, Slot: 1, BonusDEF: 2},
	{ID: "null_cloak", Name: "Null Cloak", Glyph: GlyphNullCloak, Slot: 2, BonusDEF: 3},
	{ID: "frost_weave", Name: "Frost Weave", Glyph: GlyphFrostWeave, Slot: 2, BonusDEF: 4},
	{ID: "flux_treads", Name: "Flux Treads", Glyph: GlyphFluxTreads, Slot: 3, BonusDEF: 1},
	{ID: "shard_blade", Name: "Shard Blade", Glyph: GlyphShardBlade, Slot: 4, BonusATK: 4},
	{ID: "resonance_maul", Name: "Resonance Maul", Glyph: GlyphResonanceMaul, Slot: 5, BonusATK: 7},
	{ID: "phase_mirror", Name: "Phase Mirror", Glyph: GlyphPhaseMirror, Slot: 6, BonusDEF: 3},
}

// Classes are the playable variants. The first one is also registered
// under PlayerID.
var Classes = []template.Template{
	{ID: "arcanist", Name: "Wandering Arcanist", Glyph: "🧙", HP: 30, Attack: 5, Defense: 2, FOV: 8,
		Lore: "A nomadic dimension-hopper who collected spells like others collect debt"},
	{ID: "revenant", Name: "Void Revenant", Glyph: "💀", HP: 15, Attack: 12, Defense: 0, FOV: 9,
		Lore: "Death-kissed and not quite right about it"},
	{ID: "construct", Name: "Chrono Construct", Glyph: "🦾", HP: 60, Attack: 3, Defense: 8, FOV: 5,
		Lore: "A war machine from Timeline Seven, now retired. Mostly"},
	{ID: "dancer", Name: "Entropy Dancer", Glyph: "🌀", HP: 22, Attack: 9, Defense: 1, FOV: 10,
		Lore: "You are not moving through chaos. You ARE chaos"},
	{ID: "oracle", Name: "Crystal Oracle", Glyph: "🔮", HP: 20, Attack: 3, Defense: 2, FOV: 15,
		Lore: "You have seen the whole map. The whole map has seen you"},
	{ID: "symbiont", Name: "Void Symbiont", Glyph: "🧬", HP: 42, Attack: 6, Defense: 5, FOV: 7, Capacity: 12,
		Lore: "Somewhere inside you, a dimensional parasite purrs contentedly"},
}

// Templates returns every built-in template with kinds filled in.
func Templates() []template.Template {
	var out []template.Template
	for _, t := range monsters {
		t.Kind = template.KindMonster
		out = append(out, t)
	}
	for _, t := range items {
		t.Kind = template.KindItem
		out = append(out, t)
	}
	for i, t := range Classes {
		t.Kind = template.KindPlayer
		out = append(out, t)
		if i == 0 {
			t.ID = PlayerID
			out = append(out, t)
		}
	}
	return out
}

// Builtin returns the built-in catalog as a template table.
func Builtin() *template.Table {
	return template.MustTable(Templates()...)
}
