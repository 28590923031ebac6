package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressFullText(t *testing.T) {
	t.Run("free text wins over structured fields", func(t *testing.T) {
		a := Address{FreeText: "Av. 18 de Julio 1234", Street: "ignored", City: "Montevideo", Country: "Uruguay"}
		assert.Equal(t, "Av. 18 de Julio 1234, Montevideo, Uruguay", a.FullText())
	})

	t.Run("street and number", func(t *testing.T) {
		a := Address{Street: "Bulevar Artigas", Number: "1825", City: "Montevideo"}
		assert.Equal(t, "Bulevar Artigas 1825, Montevideo", a.FullText())
	})

	t.Run("street corner", func(t *testing.T) {
		a := Address{Street: "Av. Italia", Corner1: "Propios", City: "Montevideo", Country: "Uruguay"}
		assert.Equal(t, "Av. Italia & Propios, Montevideo, Uruguay", a.FullText())
		assert.True(t, a.IsIntersection())
	})

	t.Run("two corners without a main street", func(t *testing.T) {
		a := Address{Corner1: "Rivera", Corner2: "Soca"}
		assert.Equal(t, "Rivera & Soca", a.FullText())
	})
}

func TestAddressResolvable(t *testing.T) {
	t.Run("coordinates alone are enough", func(t *testing.T) {
		a := Address{Location: &Coordinate{Lat: -34.9, Lon: -56.16}}
		assert.True(t, a.Resolvable())
		assert.True(t, a.HasLocation())
	})

	t.Run("empty address is not resolvable", func(t *testing.T) {
		a := Address{City: "Montevideo", Country: "Uruguay"}
		assert.False(t, a.Resolvable())
	})

	t.Run("corner only is resolvable", func(t *testing.T) {
		a := Address{Corner1: "Rivera"}
		assert.True(t, a.Resolvable())
	})
}

func TestAddressConstructors(t *testing.T) {
	t.Run("free text trims whitespace", func(t *testing.T) {
		a, err := NewFreeTextAddress("  Colonia 1234  ", "Montevideo", "Uruguay")
		require.NoError(t, err)
		assert.Equal(t, "Colonia 1234", a.FreeText)
	})

	t.Run("rejects blank free text", func(t *testing.T) {
		_, err := NewFreeTextAddress("   ", "Montevideo", "Uruguay")
		assert.Error(t, err)
	})

	t.Run("rejects blank street", func(t *testing.T) {
		_, err := NewStreetAddress("", "100", "Montevideo", "Uruguay")
		assert.Error(t, err)
	})
}

func TestParsePriority(t *testing.T) {
	t.Run("empty string defaults to normal", func(t *testing.T) {
		p, err := ParsePriority("")
		require.NoError(t, err)
		assert.Equal(t, PriorityNormal, p)
	})

	t.Run("known levels parse", func(t *testing.T) {
		for _, s := range []string{"low", "normal", "high", "urgent"} {
			p, err := ParsePriority(s)
			require.NoError(t, err)
			assert.True(t, p.IsValid())
		}
	})

	t.Run("unknown level is rejected", func(t *testing.T) {
		_, err := ParsePriority("asap")
		assert.Error(t, err)
	})

	t.Run("score bumps", func(t *testing.T) {
		assert.Equal(t, 0.0, PriorityLow.ScoreBump())
		assert.Equal(t, 0.0, PriorityNormal.ScoreBump())
		assert.Equal(t, 0.05, PriorityHigh.ScoreBump())
		assert.Equal(t, 0.10, PriorityUrgent.ScoreBump())
	})

	t.Run("rank orders urgency", func(t *testing.T) {
		assert.Greater(t, PriorityUrgent.Rank(), PriorityHigh.Rank())
		assert.Greater(t, PriorityHigh.Rank(), PriorityNormal.Rank())
		assert.Greater(t, PriorityNormal.Rank(), PriorityLow.Rank())
	})
}
