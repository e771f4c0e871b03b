package llm

import (
	"fmt"

	"github.com/prperemyshlev/postoptima-api/internal/domain"
)

const systemPromptTemplate = `You are a social media algorithm expert. Analyze the given post for %s and provide:
1) engagement_prediction (1-100),
2) algorithm_score (1-100),
3) three optimization suggestions,
4) an optimized version of the post.

Format your answer as a single JSON object with all of these keys present:
"original", "algorithm_score", "engagement_prediction", "optimized_version", "optimization_suggestions".
algorithm_score must be a number between 1 and 100.
engagement_prediction must be a number between 1 and 100.
optimization_suggestions must be an array of strings.
optimized_version must be a string.`

// AnalysisPrompt builds the system and user messages for one post.
func AnalysisPrompt(platform domain.Platform, content string) (system, user string) {
	system = fmt.Sprintf(systemPromptTemplate, platform)
	user = fmt.Sprintf("Platform: %s\nPost Content: %s", platform, content)
	return system, user
}
