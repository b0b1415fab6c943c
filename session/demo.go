package session

import (
	"github.com/google/uuid"

	"github.com/simp-lee/reels"
)

// DemoBookID is the fixed ID of DemoBook, so saved progress survives
// restarts.
var DemoBookID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/simp-lee/reels/demo")).String()

// DemoBook returns a three-chapter sample book for trying the reader
// without an EPUB at hand.
func DemoBook() *reels.Book {
	return reels.NewBook(DemoBookID, "Alice's Adventures in Wonderland", []reels.Chapter{
		{
			ID:    "chapter-1",
			Title: "Chapter 1: Down the Rabbit Hole",
			Content: `<h1>Chapter 1: Down the Rabbit Hole</h1>` +
				`<p>Alice was beginning to get very tired of sitting by her sister on the bank, and of having nothing to do: once or twice she had peeped into the book her sister was reading, but it had no pictures or conversations in it, &#39;and what is the use of a book,&#39; thought Alice &#39;without pictures or conversation?&#39;</p>` +
				`<p>So she was considering in her own mind (as well as she could, for the hot day made her feel very sleepy and stupid), whether the pleasure of making a daisy-chain would be worth the trouble of getting up and picking the daisies, when suddenly a White Rabbit with pink eyes ran close by her.</p>` +
				`<p>There was nothing so very remarkable in that; nor did Alice think it so very much out of the way to hear the Rabbit say to itself, &#39;Oh dear! Oh dear! I shall be late!&#39; (when she thought it over afterwards, it occurred to her that she ought to have wondered at this, but at the time it all seemed quite natural); but when the Rabbit actually took a watch out of its waistcoat-pocket, and looked at it, and then hurried on, Alice started to her feet, for it flashed across her mind that she had never before seen a rabbit with either a waistcoat-pocket, or a watch to take out of it, and burning with curiosity, she ran across the field after it, and fortunately was just in time to see it pop down a large rabbit-hole under the hedge.</p>` +
				`<p>In another moment down went Alice after it, never once considering how in the world she was to get out again.</p>`,
		},
		{
			ID:    "chapter-2",
			Title: "Chapter 2: The Pool of Tears",
			Content: `<h1>Chapter 2: The Pool of Tears</h1>` +
				`<p>&#39;Curiouser and curiouser!&#39; cried Alice (she was so much surprised, that for the moment she quite forgot how to speak good English); &#39;now I&#39;m opening out like the largest telescope that ever was! Good-bye, feet!&#39; (for when she looked down at her feet, they seemed to be almost out of sight, they were getting so far off). &#39;Oh, my poor little feet, I wonder who will put on your shoes and stockings for you now, dears? I&#39;m sure I shan&#39;t be able! I shall be a great deal too far off to trouble myself about you: you must manage the best way you can; but I must be kind to them,&#39; thought Alice, &#39;or perhaps they won&#39;t walk the way I want to go! Let me see: I&#39;ll give them a new pair of boots every Christmas.&#39;</p>` +
				`<p>And she went on planning to herself how she would manage it. &#39;They must go by the carrier,&#39; she thought; &#39;and how funny it&#39;ll seem, sending presents to one&#39;s own feet! And how odd the directions will look!&#39;</p>` +
				`<p>Just then her head struck against the roof of the hall: in fact she was now more than nine feet high, and she at once took up the little golden key and hurried off to the garden door.</p>`,
		},
		{
			ID:    "chapter-3",
			Title: "Chapter 3: A Caucus-Race and a Long Tale",
			Content: `<h1>Chapter 3: A Caucus-Race and a Long Tale</h1>` +
				`<p>They were indeed a queer-looking party that assembled on the bank, the birds with draggled feathers, the animals with their fur clinging close to them, and all dripping wet, cross, and uncomfortable.</p>` +
				`<p>The first question of course was, how to get dry again: they had a consultation about this, and after a few minutes it seemed quite natural to Alice to find herself talking familiarly with them, as if she had known them all her life. Indeed, she had quite a long argument with the Lory, who at last turned sulky, and would only say, &#39;I am older than you, and must know better&#39;; and this Alice would not allow without knowing how old it was, and, as the Lory positively refused to tell its age, there was no more to be said.</p>` +
				`<p>At last the Mouse, who seemed to be a person of authority among them, called out, &#39;Sit down, all of you, and listen to me! I&#39;ll soon make you dry enough!&#39; They all sat down at once, in a large ring, with the Mouse in the middle. Alice kept her eyes anxiously fixed on it, for she felt sure she would catch a bad cold if she did not get dry very soon.</p>`,
		},
	})
}
