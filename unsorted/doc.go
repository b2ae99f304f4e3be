/*
Package unsorted provides unsorted variants of [os.ReadDir], for the many
situations where the order of directory entries doesn't matter at all, such as
when scanning the proc file system. So why bother to sort them?
*/
package unsorted
