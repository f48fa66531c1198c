package catalog

// Static copy for the scripted funnel. Kept in one place so the wording can be
// reviewed without touching delivery logic.

const welcomeText = `Hey! ✌️

I have a gift for you: three free lessons on P2P arbitrage 🤝

This intensive takes you from zero to your first income in P2P. I collected
real cases and hands-on practice, and I will walk you through them step by
step until you see your first result.

👉 The final lesson contains the exact playbook you can apply to reach your
first profit.

The three free lessons waiting for you:
1️⃣ What P2P is in 2025 and why this window will not stay open.
2️⃣ How I earned $50,000 and a new car in three months.
3️⃣ A P2P playbook: the fast path to your first profit.`

const lessonIntroText = `Your first P2P arbitrage lesson is ready.

Inside you will learn:
• what P2P is and how it works;
• why exchange has existed for thousands of years and always will;
• what you need to start earning on P2P.

There is also a bonus 🎁 waiting after you finish all three lessons, so do not
put it off.

Ready to start?`

const afterLesson1Text = `Well done finishing the first lesson! 🙌

I put a lot into it and I hope it was useful. Here comes access to the second
lesson 🚀

Reminder: lesson three reveals the playbook you can plug into your own work.

Hit the button below and keep going 👀`

const afterLesson2Text = `Most of the intensive is behind you 🔥

The third and final lesson is next. In it I run the playbook live and add 2%
to the starting balance in minutes, and later you can simply repeat the same
steps.

Do not put it off, study the playbook now.`

const gateText = `One more thing I want to share: I keep a diary channel where I post every
evening with insights, business notes and practical recommendations.

A while ago I set myself a public goal there, and you can follow along and
hold me to it. If you catch a missed day, message me and the miss is on me.

To unlock the third lesson with the full playbook, subscribe to the diary 👇`

const gatePassedText = "Congratulations! 🎉 You unlocked the third lesson."

const gateRetryText = `I do not see your diary request yet.
Tap "Subscribe to the diary", send the join request, then tap CHECK again.`

const promoCourseText = `Want to master P2P and earn from $100 a day?

The mini course includes:
— five 30-minute lessons
— a working playbook you can repeat after me
— step-by-step instructions and ready-made templates
— a bonus promo code for the next cohort

Seats are limited ⛔️`

const promoMentorText = `As you may have guessed, I also run a personal P2P mentorship that hundreds
of students have completed. Every curator is a former student, and students
reach their first sustainable income within the first month.

What makes it different:
• work in the safest niche in crypto;
• three-plus years of my own experience distilled into current material;
• dozens of arbitrage playbooks: P2P, funding, inter-exchange, spot/futures;
• a community of specialists and business owners.

To join the next cohort, fill in the form below.`

// GatePassedText is the confirmation sent when the gate check succeeds.
func GatePassedText() string { return gatePassedText }

// GateRetryText is the re-prompt sent when the gate check fails.
func GateRetryText() string { return gateRetryText }

var accessNudgeTexts = []string{
	"I see you have not picked up access to the lessons yet. Tap below and start with the first one 👇",
	"Quick reminder: three free lessons are waiting for you. Grab your access 👇",
	"Let's not put it off — grab your access and start right now 👇",
}

var lessonReminderTexts = map[int]string{
	1: "I see you have not opened the *first free lesson* yet. Grab it now 👇",
	2: "Reminder: *lesson 2* is still waiting for you 👇",
	3: "Only *lesson 3* is left. Let's get you to a result 💸👇",
}

var rotationPosts = []Post{
	{
		Text: `Newcomers often think P2P requires a special talent or plain luck.
It does not. All it takes is the will to figure things out and act.

Fear of failing, fear of being scammed, fear it will not work out — every one
of these dissolves when you approach P2P the right way with a mentor who has
walked the path.

That is exactly why the course exists: not promises, a step-by-step system
that works for me and my students. Some made their first $30–50 a day, some
closed their first week at $300–400, and the early ones now run their own
teams.

The whole point of P2P is to start small, understand the mechanics, and grow
from there. There is no ceiling here.

So, are you in, or will you keep watching other people's results?`,
	},
	{
		Text: `Today P2P is my profession and my main income. When I started I wrongly
assumed it was a short-lived trick. It turned out to be a predictable business
over any reasonable horizon.

P2P gave me real freedom: no boss, no fixed location, no income ceiling.
People have always exchanged value — coins for coins once, crypto for fiat
now — and they always will. The market works around the clock, and all I need
is a laptop and a phone.

Some people search for their profession their whole life. I can honestly say I
found mine.`,
	},
	{
		Text: `I am honestly surprised you have not picked up the free playbook my students
use to average solid monthly results 🤔

As an exception, here is direct access to the lesson where the full playbook
is laid out. Grab it below before the access closes 👇`,
	},
	{
		Text: `I know you are busy, but trust me: after this one lesson you will understand
the foundations of P2P and discover a new income stream ⏳

Grab the ready-made lesson below (access is limited) 👇`,
	},
	{
		Text: `A good illustration of P2P's advantage over other fields is full independence.

• Time: cannot work during the day? Work at night.
• Place: P2P is online, work from wherever suits you.
• People: no boss unless you want to build and run a team.
• Skills: students join with zero crypto background and within a month of
  training their results speak for themselves.

P2P is a tool that, in the right hands, buys complete freedom. The question is
whether you are ready to take it.`,
	},
	{
		Text: `This is the story of one of my first students.

Before P2P he worked a factory job abroad and wanted to change his life. He
joined the mentorship with no capital and no P2P knowledge, only the will to
learn. It was hard at first, and two months later he reached a stable monthly
income that let him quit the factory for good.

If it worked for him, it will work for you.`,
	},
	{
		Text: `So why P2P and not another niche? 👀

1) No inventory to buy: your money never leaves your sight.
2) Fully online: no ties to time, place or people.
3) No income ceiling: you can scale and build teams.
4) A small starting balance is enough.
5) Easy entry for beginners, unlike futures trading that takes years.
6) The most conservative niche in crypto.

The key thing to understand: P2P is not a trick, it is a real business that
rewards the time and effort you invest. I can hand you the knowledge; the
question is whether you will take it.`,
	},
	{
		Text: `Let's break down what makes this mini course worth it.

First, the price: where else is P2P training this accessible?
Second, five full 30-minute lessons.
Third, one lesson shows in detail the working playbook me and my students use
daily.

You also get a step-by-step plan for your first month, a breakdown of typical
beginner mistakes, and ready-made templates for a quick start.

There is a gift inside 🎁 — a promo code for the next mentorship cohort. I will
not say which lesson hides it, stay sharp 😉

The link to the mini course is below 👇`,
	},
}
