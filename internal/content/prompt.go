package content

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an expert marketing copywriter. Write persuasive, specific copy grounded in the product details you are given. Never invent features that were not provided. Respond with the copy only, no preamble.`

var contentTypeInstructions = map[string]string{
	"product_description": "Write a product description of 2-3 short paragraphs that leads with the strongest benefit.",
	"social_post":         "Write a social media post under 280 characters with one clear call to action. Include 2-3 relevant hashtags.",
	"email_campaign":      "Write a marketing email with a subject line on the first line, then the body. Keep the body under 200 words.",
	"landing_page":        "Write landing page hero copy: a headline, a subheadline, and three short benefit bullets.",
	"ad_copy":             "Write three short ad variants, each with a headline under 40 characters and a description under 90 characters.",
}

// buildPrompt turns the copy brief into the user message for the model.
func buildPrompt(req GenerateRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Product: %s\n", req.ProductName)
	b.WriteString("Key features:\n")
	for _, f := range req.KeyFeatures {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	fmt.Fprintf(&b, "Target audience: %s\n", req.TargetAudience)
	fmt.Fprintf(&b, "Tone: %s\n\n", req.Tone)

	if instr, ok := contentTypeInstructions[req.ContentType]; ok {
		b.WriteString(instr)
	} else {
		b.WriteString("Write compelling marketing copy for this product.")
	}

	return b.String()
}
