// Package saturation analyzes how full each cache is under a placement and checks
// the placement against the instance.
//
// Core Concepts:
//
// Saturation measures how much of a cache's capacity a placement consumes:
//   - Used: sum of the sizes of the stored videos
//   - Utilization: Used / X, in [0, 1] for every valid placement
//   - Saturated: a cache whose utilization reaches SaturatedUtilization
//
// Verification rejects any placement that breaks one of the invariants the model
// guarantees:
//   - every listed cache id is in [0, C) and listed once
//   - every video id is in [0, V), listed once, in increasing order
//   - the stored sizes of every cache do not exceed X (capacity invariant)
//   - a credited request is served by a cache that stores its video (linking)
//   - no request is credited to more than one cache (mutual exclusion)
//
// Scoring follows the contest rule: each request is served by the connected cache
// with the lowest latency among those storing its video, or by the data center. The
// score is the total time saved multiplied by 1000 and divided by the number of
// individual requests, rounded down.
//
// Example usage:
//
//	report := saturation.Analyze(inst, placement)
//	if err := saturation.Verify(inst, placement); err != nil {
//	    return err
//	}
//	score := saturation.Score(inst, placement)
//	logger.Info("Placement analyzed",
//	    "usedCaches", report.UsedCaches,
//	    "meanUtilization", report.MeanUtilization,
//	    "points", score.Points)
package saturation
