// Package prompts holds the prompt templates for every LLM call the
// engine makes, plus the named-placeholder renderer that fills them.
// The core depends only on "fill named placeholders with values", not
// on any particular templating syntax.
package prompts

// Template names used by the engine.
const (
	NameInitialize = "initialize"
	NameProgress   = "progress"
	NameAppraisal  = "appraisal"
	NameDecision   = "decision"
	NameSummarize  = "summarize"
	NameCommitment = "commitment"
)

const initializeTemplate = `You are the scene master of a two-person relationship simulation.

Current scene state:
{{scene_state}}

Eligible turning points for the next scene:
{{eligible_scenes}}

Partner 1:
{{partner_1}}

Partner 2:
{{partner_2}}

Compose the opening scene. Choose one turning point, invent a concrete setting, a central scene conflict, and one personal goal for each partner.

Respond with JSON only, in this exact shape:
{"theme": "...", "setting": "...", "supporting_characters": ["..."], "current_scene": "...", "previous_summary": "", "character_1_goal": "...", "character_2_goal": "...", "scene_conflict": "..."}`

const progressTemplate = `You are the scene master of a two-person relationship simulation. Continue the scene.

Scene history so far:
{{scene_history}}

Characters:
{{partner_1}}
{{partner_2}}

Write the next narrative beat (2-4 sentences) and decide which character must act next. Identify the character by their character_id exactly as given above.

Respond with JSON only:
{"narrative": "...", "character_id": "..."}`

const appraisalTemplate = `You are {{agent_name}}. Your profile:
{{agent_description}}

What has happened in the scene so far:
{{scene_history}}

Appraise the situation from {{agent_name}}'s point of view. Score your current emotions on the eight Plutchik dimensions (joy, acceptance, fear, surprise, sadness, disgust, anger, anticipation), each between 0 and 1, and describe your inner thoughts in first person.

Respond with JSON only:
{"emotion_scores": [0,0,0,0,0,0,0,0], "inner_thoughts": "..."}`

const decisionTemplate = `You are {{agent_name}}. Your profile:
{{agent_description}}

Your memory of recent events:
{{working_memory}}

Your current inner thoughts:
{{inner_thoughts}}

The scene master narrates:
{{narrative}}

Decide what {{agent_name}} does or says next, in character, as a short piece of narrative action and dialogue.

Respond with JSON only:
{"action": "..."}`

const summarizeTemplate = `You are the scene master of a two-person relationship simulation. The scene has ended.

Scene state:
{{scene_state}}

Full scene history:
{{scene_history}}

Summarize the scene in 3-5 sentences, covering what happened, how each partner behaved, and how the relationship shifted.

Respond with JSON only:
{"summary": "..."}`

const commitmentTemplate = `You are evaluating the trajectory of a two-person relationship.

Relationship history so far:
{{relationship_history}}

Latest scene summary:
{{summary}}

Rate the partners' current mutual commitment from 0 (disengaged) to 100 (fully committed), and name the trend.

Respond with JSON only:
{"commitment_score": 0, "trend": "improving|deteriorating|stable"}`

// defaults maps template names to their built-in text.
var defaults = map[string]string{
	NameInitialize: initializeTemplate,
	NameProgress:   progressTemplate,
	NameAppraisal:  appraisalTemplate,
	NameDecision:   decisionTemplate,
	NameSummarize:  summarizeTemplate,
	NameCommitment: commitmentTemplate,
}
