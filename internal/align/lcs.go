package align

// LCSDiffer computes the edit script from a classic dynamic-programming
// longest common subsequence. It needs O(len(reference)·len(recognized))
// memory and is kept as a reference implementation for short passages.
type LCSDiffer struct{}

type indexPair struct {
	ref, rec int
}

// Diff implements Differ.
func (LCSDiffer) Diff(reference, recognized []string) []Delta {
	anchors := lcsAnchors(reference, recognized)

	out := make([]Delta, 0, max(len(reference), len(recognized)))
	ri, si := 0, 0
	emitGap := func(refEnd, recEnd int) {
		for ; ri < refEnd; ri++ {
			out = append(out, Delta{Op: Deleted, Reference: reference[ri]})
		}
		for ; si < recEnd; si++ {
			out = append(out, Delta{Op: Inserted, Recognized: recognized[si]})
		}
	}
	for _, a := range anchors {
		emitGap(a.ref, a.rec)
		out = append(out, Delta{Op: Unchanged, Reference: reference[ri], Recognized: recognized[si]})
		ri++
		si++
	}
	emitGap(len(reference), len(recognized))
	return out
}

// lcsAnchors returns the index pairs of one longest common subsequence of a
// and b, in increasing order.
func lcsAnchors(a, b []string) []indexPair {
	m, n := len(a), len(b)
	if m == 0 || n == 0 {
		return nil
	}

	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			switch {
			case a[i-1] == b[j-1]:
				dp[i][j] = dp[i-1][j-1] + 1
			case dp[i-1][j] >= dp[i][j-1]:
				dp[i][j] = dp[i-1][j]
			default:
				dp[i][j] = dp[i][j-1]
			}
		}
	}

	k := dp[m][n]
	anchors := make([]indexPair, k)
	for i, j := m, n; i > 0 && j > 0; {
		switch {
		case a[i-1] == b[j-1]:
			k--
			anchors[k] = indexPair{ref: i - 1, rec: j - 1}
			i--
			j--
		case dp[i-1][j] >= dp[i][j-1]:
			i--
		default:
			j--
		}
	}
	return anchors
}

var _ Differ = LCSDiffer{}
