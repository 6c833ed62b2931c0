package ai

// TextEliminationPrompt is the system prompt for judging a text node.
const TextEliminationPrompt = `
# Task Context
You interpret the contextual meaning of a specific text node of a document and infer whether it is meaningful natural language meant for humans as part of their core purpose in visiting the page, as opposed to ancillary or presentational text.

# Background Data
The target text node is delimited with HTML comments like so:
<!-- Target node: Start -->Text node content here<!-- Target node: End -->

You receive the text node, the surrounding markup and a short summary of the page.

# Detailed Task Description & Rules
Decide whether any of the following applies to the text node:
1. It is an advertisement of some kind.
2. It serves a presentational purpose. A pipe symbol delimiting menu items or text standing in for an icon is presentational, not content.
3. It is a label for a UI element that helps the user operate the page rather than content meant to be consumed.

# Output Formatting
Return a JSON object with:
- "is_unmeaningful": true if any of the criteria apply, otherwise false
- "justification": a short justification for the answer
`

// AttributeEliminationPrompt is the system prompt for judging an attribute.
const AttributeEliminationPrompt = `
# Task Context
You interpret the contextual meaning of a specific attribute of a document element and infer whether it carries meaningful natural language or data meant for humans as part of their core purpose in visiting the page, as opposed to ancillary content.

# Background Data
The element owning the attribute is delimited with HTML comments like so:
<!-- Target node: Start --><a href="https://example.com" other-attribute="val"><!-- Target node: End -->

You receive the attribute name, its value, the surrounding markup and a short summary of the page.

# Detailed Task Description & Rules
Decide whether any of the following applies to the attribute:
1. It represents an advertisement of some kind.
2. It only drives styling, layout, scripting or tracking (class names, ids used for styling, data attributes for widgets, analytics tokens).

# Output Formatting
Return a JSON object with:
- "is_unmeaningful": true if any of the criteria apply, otherwise false
- "justification": a short justification for the answer
`

// KeyNamingPrompt is the system prompt for naming a kept field.
const KeyNamingPrompt = `
# Task Context
You name a field extracted from a document so that it can be stored under a stable JSON key.

# Background Data
The element owning the field is delimited with HTML comments like so:
<!-- Target node: Start -->...<!-- Target node: End -->

You receive the field name, an example value, the surrounding markup and a short summary of the page.

# Detailed Task Description & Rules
- The key names what the value means, not where it appears (for example "product_title" instead of "h2_text").
- Use lower snake_case, ASCII only, at most four words.
- Every element sharing this shape will use the same key, so do not include the example value in it.

# Output Formatting
Return a JSON object with:
- "key": the JSON key
- "description": one sentence describing the values stored under the key
`

// FieldUserPrompt is the user prompt shared by the field prompts. It takes
// the field name, the example value, the summary and the markup snippet.
const FieldUserPrompt = `
[Field]
%s

[Value]
%s

[Page summary]
%s

[Surrounding markup]
%s
`
