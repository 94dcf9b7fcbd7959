// Package scripture resolves free-text scripture citations.
//
// Resources on the site carry a "secondary scripture" field written by hand,
// such as "Matthew 5; Luke 6:20-26" or "1 Cor. 13". This package parses that
// text against a canon of books and answers whether a given book and chapter
// is referenced by it.
//
// Parsing is lenient: a citation is split on commas and semicolons and each
// segment is parsed independently. A segment that does not parse, names an
// unknown book, or names a chapter outside the book is skipped rather than
// failing the whole citation. Text after a segment's locator, such as a
// translation note in "Matthew 5:1-12 (ESV)", is ignored.
//
// Range rules:
//   - "John" covers every chapter of John.
//   - "Mark 10-12" covers chapters 10 through 12.
//   - "Luke 6:20-26" covers chapter 6 (the verses are kept but not used for
//     chapter matching).
//   - "John 3:16-4:2" covers chapters 3 and 4.
//   - An inverted range such as "Mark 10-5" collapses to its start chapter.
//   - A chapter end past the last chapter is clamped to the last chapter.
//   - For one-chapter books a bare number is a verse: "Jude 5" is Jude 1:5.
//
// Book names are compared after normalization (lower case, hyphens treated
// as spaces, whitespace collapsed) and resolved through the canon's alias
// table, so "1-corinthians", "1 Corinthians", "I Cor." and "First
// Corinthians" name the same book.
package scripture
