package mcpserver

// MatchingRules describes how relink passes pick a replacement file. It is
// served as the texrelink://matching-rules resource.
const MatchingRules = `# Texture Relink Matching Rules

A relink pass repairs asset references whose stored path no longer points
at a regular file.

## Candidates

- Embedded (packed) references are never touched.
- References with an empty path are skipped.
- A reference is a candidate when its path, resolved against the base
  directory, does not name an existing regular file.

## Search index

- The library root is walked recursively in lexical order.
- Only files whose extension is in the allowed list are indexed. The
  comparison ignores case and a leading dot (` + "`png`" + ` and ` + "`.PNG`" + ` are the same).
- Keys are the lower-cased file name including its extension.
- When two files share a name the first one found wins.

## Lookup

1. Exact: the base name of the stored path (either slash style) is looked
   up case-insensitively.
2. Stem fallback (when enabled): if the stored name has no match, the first
   indexed file with the same stem is used. This repairs references saved
   without an extension or with a different one.

## Rewrites

- When a base directory is set, the match is stored relative to it with the
  relative prefix (default ` + "`//`" + `) in front. A match outside the base
  directory climbs out of it, e.g. ` + "`//../lib/wall.png`" + `.
- The absolute path is stored only when there is no base directory or no
  relative path between the two exists (different volumes).
- Running the same pass twice changes nothing the second time.
- ` + "`relinked + missing == examined`" + ` in every report.
`
