/*
Package feature defines the records produced by collection passes: the generic
[Feature] as handed to emitters, the keyed [Pair] streamed by collection
functions, and the typed attribute records of the built-in collectors.

Attribute records are plain structs with exported fields, as they need to
survive the trip from a namespace-switched child process back into the
collector process.
*/
package feature
