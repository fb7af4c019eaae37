package llm

import (
	"fmt"
	"strings"

	"jobfit-backend/resume/contract"
)

// MaxResumeChars bounds the résumé text embedded in a prompt, counted in characters.
const MaxResumeChars = 10000

// PromptInput is everything the analysis prompt is built from.
type PromptInput struct {
	JobTitle       string
	CompanyName    string
	JobDescription string
	ResumeText     string
	FileName       string
}

// Truncate returns at most max characters of s.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// BuildAnalysisPrompt renders the ATS scan instruction, the job description, the
// truncated résumé text and the JSON shape the service must answer with.
func BuildAnalysisPrompt(in PromptInput) string {
	var b strings.Builder
	b.WriteString("You are an expert ATS (Applicant Tracking System) Scanner.\n")
	b.WriteString("Your task is to:\n")
	b.WriteString("1. READ the Job Description and the Resume Content below.\n")
	b.WriteString("2. CALCULATE a REAL Match Score (0-100) based on strict keyword matching and experience alignment.\n")
	b.WriteString("3. GENERATE optimized content to fill the placeholders in the resume.\n\n")

	fmt.Fprintf(&b, "TARGET ROLE: %s at %s\n\n", in.JobTitle, in.CompanyName)

	b.WriteString("JOB DESCRIPTION:\n")
	b.WriteString(in.JobDescription)
	b.WriteString("\n\n")

	b.WriteString("RESUME CONTENT (Extracted Text):\n")
	b.WriteString(Truncate(in.ResumeText, MaxResumeChars))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "RESUME FILE NAME: %s\n\n", in.FileName)

	b.WriteString("REQUIRED JSON OUTPUT FORMAT:\n")
	b.WriteString("Return ONLY valid JSON, no markdown, matching exactly this structure:\n")
	b.WriteString(outputShape())
	b.WriteString("\nEvery value in \"replacements\" must be a plain string tailored to the job description.\n")
	return b.String()
}

func outputShape() string {
	var b strings.Builder
	b.WriteString("{\n")
	b.WriteString("  \"matchScore\": <number 0-100>,\n")
	b.WriteString("  \"resumeSummary\": \"<short summary of the candidate's fit>\",\n")
	b.WriteString("  \"missingKeywords\": [\"<keyword>\", \"...\"],\n")
	b.WriteString("  \"insightsAndRecommendations\": [\"<recommendation>\", \"...\"],\n")
	b.WriteString("  \"replacements\": {\n")
	keys := contract.Keys()
	for i, k := range keys {
		fmt.Fprintf(&b, "    %q: \"<%s>\"", k, describeKey(k))
		if i < len(keys)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("  }\n")
	b.WriteString("}\n")
	return b.String()
}

func describeKey(key string) string {
	switch {
	case strings.HasPrefix(key, contract.PrefixSummary):
		return "professional summary bullet"
	case strings.Contains(key, "_achievement_"):
		return "quantified achievement"
	case strings.HasPrefix(key, contract.PrefixExpLatest):
		return "latest role responsibility bullet"
	default:
		return "previous role responsibility bullet"
	}
}
