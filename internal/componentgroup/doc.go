// Package componentgroup implements the component group registry.
//
// A group collects components and macros through associations — weak
// edges keyed by member uid that carry their own settings. Deleting a
// component does not cascade into groups; associations to deleted
// components are tolerated and kept until they are unassigned.
//
// The save protocol persists the group in full on every committed
// mutation: configuration.json, settings.json, and one settings.json per
// association under Components/<uid>/ and Macros/<uid>/. Association
// directories on disk that no longer have an in-memory counterpart are
// removed during the save.
package componentgroup
