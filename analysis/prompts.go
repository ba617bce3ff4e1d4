package analysis

const analysisSystemPrompt = `You are a project planning collaborator. From the conversation, attachments and any previous analysis, extract a structured project brief. Respond with ONLY a JSON object:
{
  "project_name": "short name, or omit if unknown",
  "project_type": "one of: web-app, mobile-app, api, cli-tool, library, other",
  "description": "one paragraph describing the project",
  "objective": "the primary goal, or omit if unknown",
  "deliverables": ["concrete deliverable", ...],
  "suggested_phases": [{"title": "...", "goal": "...", "estimated_days": 0}],
  "confidence": 0.0,
  "missing_information": ["what you still need to know", ...]
}
Confidence is your overall certainty in the extracted brief, between 0 and 1. Only include fields the conversation supports; never invent details.`

const roadmapSystemPrompt = `You are a delivery planning collaborator. Produce a phased roadmap for the analyzed project. Respond with ONLY a JSON object:
{
  "phases": [{"title": "...", "goal": "...", "estimated_days": 0}],
  "confidence": 0.0
}
Use 3 to 6 phases ordered from first to last.`

const roadmapUserPrompt = `Project type: %s
Analysis:
%s`

const commentSystemPrompt = `You are a project planning collaborator watching a user edit their project brief directly. Write one short, friendly comment (2-3 sentences) reacting to the change described. Be concrete and non-judgmental; ask at most one question. Respond with plain text only.`

const commentUserPrompt = `Change type: %s
Field: %s
Previous value: %s
New value: %s
Why it matters: %s`
