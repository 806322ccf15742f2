package sm2

// QualityFromAnswer converts a simple correct/incorrect answer into a quality
// rating, for clients that do not ask the learner for a granular 0-5 grade.
// Difficulty is the learner's perceived difficulty: "easy", "normal" or
// "hard"; anything else is treated as normal.
func QualityFromAnswer(correct bool, difficulty string) int {
	if !correct {
		return 0
	}
	switch difficulty {
	case "easy":
		return 5
	case "hard":
		return PassThreshold
	default:
		return 4
	}
}
