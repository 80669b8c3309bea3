package mcpserver

// NoteFormatContract describes the markdown document format notes are
// exported in and imported from.
const NoteFormatContract = `# noteflow Note Format

Notes exported as markdown, and files dropped into the import inbox, use
this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # REQUIRED for import; falls back to the first heading, then the file name
date: 2025-01-15T09:30:00Z          # OPTIONAL – RFC 3339; import keeps it as the note date
tags:                               # OPTIONAL – names, or name/color pairs
  - errands
  - name: work
    color: ff8800
---

Body text in standard Markdown. Inline #hashtags are also picked up as tags.
` + "```" + `

## Rules

1. **Frontmatter** fences must be the first thing in the file.
2. **Tag colors** are six hex digits without a leading #. A tag already in
   the registry keeps its registry color; unknown tags without a color get
   a random one.
3. **Tag names** are matched case-insensitively.
4. A file with an invalid tag color is moved to ` + "`" + `rejected/` + "`" + ` instead of
   being imported.
5. **Encoding** is UTF-8 with a trailing newline.
`
