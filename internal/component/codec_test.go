package component

import (
	"errors"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/require"
)

func TestEncodeUsesStableKindTags(t *testing.T) {
	kind, _, err := Encode(Position{X: 1, Y: 2, Z: -1})
	require.NoError(t, err)
	require.Equal(t, TagPosition, kind)

	kind, _, err = Encode(Actor{Kind: KindMonster, Name: "rat"})
	require.NoError(t, err)
	require.Equal(t, TagActor, kind)
}

func TestDecodeRenderHintRestoresWidthAndDefaultColor(t *testing.T) {
	hint := NewRenderHint("🐉", "red", "", 5)
	require.Equal(t, 2, hint.Width)
	require.Equal(t, tcell.ColorDefault, hint.BG)

	kind, raw, err := Encode(hint)
	require.NoError(t, err)
	got, err := Decode(kind, raw)
	require.NoError(t, err)

	rh := got.(RenderHint)
	require.Equal(t, "🐉", rh.Glyph)
	require.Equal(t, 2, rh.Width)
	require.Equal(t, tcell.ColorDefault, rh.BG)
	require.Equal(t, hint, rh)
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Decode("telepathy", []byte(`{}`))
	require.True(t, errors.Is(err, ErrUnknownKind))
}

func TestParseBehavior(t *testing.T) {
	b, ok := ParseBehavior("patrol")
	require.True(t, ok)
	require.Equal(t, BehaviorPatrol, b)
	require.Equal(t, "patrol", b.String())

	_, ok = ParseBehavior("berserk")
	require.False(t, ok)
}

func TestItemUsesItemTag(t *testing.T) {
	item := Item{Slot: SlotConsumable, Heal: 4}
	kind, raw, err := Encode(item)
	require.NoError(t, err)
	require.Equal(t, TagItem, kind)

	got, err := Decode(kind, raw)
	require.NoError(t, err)
	require.Equal(t, item, got)
}
