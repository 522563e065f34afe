package evaluator

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `You are an expert technical interview evaluator. Return ONLY valid JSON in this exact format:
{
  "score": <number between 1-10>,
  "missing": ["list of missing key points or gaps"],
  "followup": "<next question or follow-up based on the answer>",
  "complete": <true if this topic is sufficiently covered, false otherwise>
}

Evaluation Guidelines:
- Consider job requirements and role-specific competencies
- Assess technical depth, clarity, and practical understanding
- Evaluate problem-solving approach and communication
- Be thorough but fair in scoring
- Focus on both theoretical knowledge and practical application
- Consider how well the answer aligns with the job requirements
- IMPORTANT: Only ask about specific technologies (like PostgreSQL, Redis, specific frameworks) if they are explicitly mentioned in the job requirements or candidate's background
- Keep questions diverse and avoid over-focusing on any single technology
- For database questions, use general terms unless PostgreSQL is specifically mentioned in job requirements`

func nextQuestionGuidance(req Request) string {
	focus := strings.Join(req.Next.Focus, ", ")
	switch req.Next.Type {
	case "technology":
		return fmt.Sprintf("NEXT QUESTION CONTEXT: Generate a programming/technical question focusing on: %s.\n"+
			"Ask about fundamental programming concepts, data structures, algorithms, or SQL based on the job requirements and candidate's background.", focus)
	case "mixed":
		return fmt.Sprintf("NEXT QUESTION CONTEXT: Generate a question that integrates job requirements with the candidate's resume/experience.\n"+
			"Focus on: %s.", focus)
	case "introduction_followup":
		return "NEXT QUESTION CONTEXT: Generate a follow-up question based on the candidate's introduction.\n" +
			"Ask for clarification or deeper details about their mentioned skills, projects, or experience."
	}
	if req.Next.Context != "" {
		guidance := "NEXT QUESTION CONTEXT: " + req.Next.Context
		if focus != "" {
			guidance += "\nFocus on: " + focus + "."
		}
		return guidance
	}
	return ""
}

func historyBlock(history []HistoryItem) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("PREVIOUS CONVERSATION HISTORY (avoid repeating similar questions):\n")
	for i, h := range history {
		answer := h.Answer
		if len(answer) > historyAnswerLimit {
			answer = answer[:historyAnswerLimit]
		}
		fmt.Fprintf(&b, "Q%d: %s\n", i+1, h.Question)
		fmt.Fprintf(&b, "A%d: %s...\n\n", i+1, answer)
	}
	return b.String()
}

func buildUserPrompt(req Request) string {
	job := req.JobDescription
	if job == "" {
		job = "General technical role"
	}

	return fmt.Sprintf(`Job Requirements: %s

Evaluation Criteria: %s
Current Question: %s
Current Answer: %s

%s

%s

IMPORTANT: Review the conversation history above and ensure your next question is NEW and DIFFERENT from previously asked questions. Avoid asking about the same projects, skills, or topics already covered.

Evaluate this answer considering:
1. Technical accuracy and depth
2. Relevance to the job requirements
3. Problem-solving demonstration
4. Communication clarity
5. Practical application knowledge

Provide the next follow-up question if more depth is needed, or acknowledge completion if thoroughly covered.
`, job, req.Criteria, req.Question, req.Answer, historyBlock(req.History), nextQuestionGuidance(req))
}

func parseFallback() *Evaluation {
	return &Evaluation{
		Score:    5,
		Missing:  []string{"Could not parse evaluation"},
		Followup: "Could you elaborate on your previous answer?",
		Complete: false,
	}
}

// reply mirrors Evaluation with a nullable score so an absent score is not
// mistaken for zero.
type reply struct {
	Score    *float64 `json:"score"`
	Missing  []string `json:"missing"`
	Followup string   `json:"followup"`
	Complete bool     `json:"complete"`
}

// parseEvaluation strips markdown fences and decodes the reply. A reply that
// is not valid JSON or carries no score yields the parse fallback and ok=false.
func parseEvaluation(content string) (*Evaluation, bool) {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var r reply
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil || r.Score == nil {
		return parseFallback(), false
	}
	if r.Missing == nil {
		r.Missing = []string{}
	}
	return &Evaluation{
		Score:    *r.Score,
		Missing:  r.Missing,
		Followup: r.Followup,
		Complete: r.Complete,
	}, true
}

