// Package scoring holds the pure ranking math used by the offer and
// matching flows: great-circle distance, proximity decay, trust weighting,
// style overlap and the combined compatibility score. Nothing in here
// touches the database.
package scoring

import (
	"math"

	"github.com/ropaswap/backend/internal/model"
)

const earthRadiusKm = 6371

// DistanceKm returns the haversine great-circle distance in kilometers.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ProximityScore decays smoothly with distance; 0 km gives 1.0, 100 km
// gives 0.5.
func ProximityScore(distanceKm float64) float64 {
	return 1 / (1 + distanceKm/100)
}

// TrustWeight maps a tier to its ranking weight. Unknown tiers weigh the
// same as bronze.
func TrustWeight(tier model.TrustTier) float64 {
	switch tier {
	case model.TrustTierGold:
		return 1.0
	case model.TrustTierSilver:
		return 0.6
	case model.TrustTierBronze:
		return 0.3
	default:
		return 0.3
	}
}

// StyleOverlap measures shared style preferences as |intersection| over
// the size of the larger set. A user with no stated preferences gets a
// neutral 0.5 rather than a penalty.
func StyleOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.5
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	shared := 0
	seen := make(map[string]struct{}, len(b))
	for _, s := range b {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if _, ok := set[s]; ok {
			shared++
		}
	}
	larger := len(set)
	if len(seen) > larger {
		larger = len(seen)
	}
	return float64(shared) / float64(larger)
}

// PriceBonus rewards bidding at or above asking price.
func PriceBonus(t model.OfferType) float64 {
	switch t {
	case model.OfferTypeOverbid:
		return 0.10
	case model.OfferTypeMatch:
		return 0.05
	default:
		return 0
	}
}

// Compatibility combines proximity, reputation, experience and style into
// a ranking score. The range is roughly [0, 1.1]; it is only ever compared
// against other scores, never used as a gate.
func Compatibility(distanceKm float64, buyer *model.User, seller *model.User, offerType model.OfferType) float64 {
	karmaScore := math.Min(float64(buyer.KarmaPoints)/1000, 1)
	experienceScore := math.Min(float64(buyer.CompletedTrades)/20, 1)
	return ProximityScore(distanceKm)*0.30 +
		karmaScore*0.15 +
		TrustWeight(buyer.TrustTier)*0.15 +
		experienceScore*0.15 +
		StyleOverlap(buyer.StylePreferences, seller.StylePreferences)*0.15 +
		PriceBonus(offerType)
}

// ClassifyOffer compares a bid against the asking price. Equal amounts are
// a MATCH exactly; a missing price counts as zero, so any positive bid on
// a free listing is an overbid.
func ClassifyOffer(amount, askingPrice float64) model.OfferType {
	switch {
	case amount > askingPrice:
		return model.OfferTypeOverbid
	case amount == askingPrice:
		return model.OfferTypeMatch
	default:
		return model.OfferTypeUnderbid
	}
}

// HeldAmount computes the simulated escrow premium for an offer: overbids
// on priced listings hold the difference, rounded to cents; everything
// else holds nothing.
func HeldAmount(offerType model.OfferType, amount, askingPrice float64) *float64 {
	if offerType != model.OfferTypeOverbid || askingPrice <= 0 {
		return nil
	}
	held := Round2(amount - askingPrice)
	return &held
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TierFor recomputes the trust tier from scratch out of the current
// counters. It deliberately takes the raw counters instead of a User so a
// transaction can pass freshly-read values.
func TierFor(verified bool, completedTrades int, rating float64) model.TrustTier {
	if completedTrades >= 10 && rating >= 4.5 {
		return model.TrustTierGold
	}
	if verified {
		return model.TrustTierSilver
	}
	return model.TrustTierBronze
}
