// Package name generates random container names for unnamed launches.
package name

import (
	"math/rand"
	"time"
)

var adjectives = []string{
	"able", "bold", "brave", "bright", "brisk",
	"calm", "clever", "eager", "fair", "fleet",
	"gentle", "hardy", "jolly", "keen", "lively",
	"lucky", "merry", "nimble", "noble", "proud",
	"quick", "quiet", "rapid", "ready", "rugged",
	"salty", "sharp", "sleek", "smart", "snug",
	"solid", "steady", "stout", "sturdy", "swift",
	"tidy", "trim", "trusty", "vivid", "wily",
}

var vessels = []string{
	"barge", "barque", "brig", "caravel", "clipper",
	"corvette", "cutter", "dinghy", "dory", "ferry",
	"freighter", "frigate", "galleon", "gig", "junk",
	"kayak", "ketch", "launch", "lighter", "lugger",
	"packet", "pinnace", "punt", "schooner", "scow",
	"skiff", "sloop", "smack", "steamer", "tender",
	"trawler", "tug", "whaler", "wherry", "yawl",
}

func init() {
	rand.Seed(time.Now().UnixNano())
}

// Generate returns a random name in adjective-vessel format.
func Generate() string {
	adj := adjectives[rand.Intn(len(adjectives))]
	vessel := vessels[rand.Intn(len(vessels))]
	return adj + "-" + vessel
}
