// Package scheduling contains the pure scheduling rules of the booking engine:
// resolving a day's operating window, enumerating candidate slots and
// detecting overlaps between intervals. All arithmetic is in integer minutes
// since midnight; nothing here touches storage or wall-clock time.
package scheduling
